package revoke

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ayashield/shield-engine/internal/evm"
	"github.com/ayashield/shield-engine/internal/registry"
	"github.com/ayashield/shield-engine/internal/scoring"
	"github.com/ayashield/shield-engine/pkg/models"
)

// approve(address,uint256) selector
const approveSelector = "0x095ea7b3"

// Scanner pulls a wallet's live ERC-20 approvals, scores each against the
// spender's reputation, and generates approve(spender, 0) calldata for the
// risky rows.
type Scanner struct {
	provider evm.Provider
}

func NewScanner(provider evm.Provider) *Scanner {
	return &Scanner{provider: provider}
}

// ScanAndRevoke never fails: a provider error degrades to an empty scan.
// Approvals are returned sorted by risk score descending, stable on ties;
// rows at or above the threshold get a revoke transaction.
func (s *Scanner) ScanAndRevoke(ctx context.Context, walletAddress string, chain models.Chain, riskThreshold int) *models.EmergencyRevokeResponse {
	raw, err := s.provider.ScanApprovalLogs(ctx, walletAddress)
	if err != nil {
		log.Printf("[revoke] approval scan failed for %s: %v", walletAddress, err)
		raw = []models.RawApproval{}
	}

	scored := make([]models.Approval, 0, len(raw))
	for _, appr := range raw {
		tokenInfo, tokenKnown := registry.LookupContract(appr.TokenAddress)
		spenderInfo, spenderKnown := registry.LookupContract(appr.Spender)

		signals := models.Signals{
			IsKnownScam:       registry.IsKnownScam(appr.Spender),
			UnlimitedApproval: appr.IsUnlimited,
			TrustedContract:   spenderKnown && spenderInfo.Trusted,
			VerifiedContract:  spenderKnown,
		}

		row := models.Approval{
			TokenAddress: appr.TokenAddress,
			TokenName:    "Unknown Token",
			Spender:      appr.Spender,
			Amount:       appr.Amount,
			IsUnlimited:  appr.IsUnlimited,
			RiskScore:    scoring.CalculateRisk(signals),
		}
		if tokenKnown {
			row.TokenName = tokenInfo.Name
		}
		if spenderKnown {
			row.SpenderName = spenderInfo.Name
		}
		scored = append(scored, row)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RiskScore > scored[j].RiskScore
	})

	risky := []models.Approval{}
	for _, a := range scored {
		if a.RiskScore >= riskThreshold {
			risky = append(risky, a)
		}
	}

	revokeTxs := make([]models.RevokeTransaction, 0, len(risky))
	for _, a := range risky {
		spenderLabel := a.SpenderName
		if spenderLabel == "" && len(a.Spender) >= 10 {
			spenderLabel = a.Spender[:10]
		}
		revokeTxs = append(revokeTxs, models.RevokeTransaction{
			To:          a.TokenAddress,
			Data:        RevokeCalldata(a.Spender),
			Description: fmt.Sprintf("Revoke %s… from %s", spenderLabel, a.TokenName),
		})
	}

	// Placeholder estimate until a price oracle is in scope.
	totalAtRisk := "$0"
	if len(risky) > 0 {
		totalAtRisk = fmt.Sprintf("$%s", formatThousands(len(risky)*1000))
	}

	return &models.EmergencyRevokeResponse{
		TotalApprovals: len(scored),
		RiskyApprovals: len(risky),
		TotalAtRiskUSD: totalAtRisk,
		Approvals:      scored,
		RevokeTxs:      revokeTxs,
	}
}

// RevokeCalldata encodes approve(spender, 0): the 4-byte selector, the
// 32-byte padded spender, then 32 zero bytes. 68 bytes total.
func RevokeCalldata(spender string) string {
	payload := common.FromHex(approveSelector)
	payload = append(payload, common.LeftPadBytes(common.FromHex(strings.ToLower(spender)), 32)...)
	payload = append(payload, make([]byte, 32)...)
	return hexutil.Encode(payload)
}

func formatThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + "," + strings.Join(parts, ",")
}
