package bytecode

import (
	"strconv"
	"strings"

	"github.com/ayashield/shield-engine/pkg/models"
)

// EVM opcodes the walker reacts to.
const (
	opSelfdestruct = 0xFF
	opDelegatecall = 0xF4
	opPush1        = 0x60
	opPush32       = 0x7F
)

// Analyze walks deployed bytecode one opcode at a time looking for dangerous
// instructions. PUSH1..PUSH32 immediate data is skipped so a 0xFF byte inside
// a push payload never reads as SELFDESTRUCT. Invalid hex at a position steps
// one byte forward instead of failing; empty or "0x" input yields the zero
// analysis.
func Analyze(code string) models.BytecodeAnalysis {
	var res models.BytecodeAnalysis
	if code == "" || code == "0x" || code == "0x0" {
		return res
	}

	raw := strings.TrimPrefix(code, "0x")
	if len(raw) < 2 {
		return res
	}

	for i := 0; i < len(raw)-1; {
		op64, err := strconv.ParseUint(raw[i:i+2], 16, 8)
		if err != nil {
			i += 2
			continue
		}
		op := byte(op64)

		if op == opSelfdestruct {
			res.HasSelfdestruct = true
			res.SuspiciousPatterns = append(res.SuspiciousPatterns, "SELFDESTRUCT opcode found")
		}
		if op == opDelegatecall {
			res.HasDelegatecall = true
			res.SuspiciousPatterns = append(res.SuspiciousPatterns, "DELEGATECALL opcode found")
		}

		if op >= opPush1 && op <= opPush32 {
			pushBytes := int(op) - 0x5F
			i += 2 + pushBytes*2
		} else {
			i += 2
		}
	}

	return res
}
