package analyzer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ayashield/shield-engine/internal/evm"
	"github.com/ayashield/shield-engine/internal/registry"
	"github.com/ayashield/shield-engine/internal/scoring"
	"github.com/ayashield/shield-engine/pkg/models"
)

// TransactionAnalyzer resolves transaction inputs, decodes the function
// call, simulates it, and scores the destination signals.
type TransactionAnalyzer struct {
	provider evm.Provider
}

func NewTransactionAnalyzer(provider evm.Provider) *TransactionAnalyzer {
	return &TransactionAnalyzer{provider: provider}
}

// Analyze produces the risk verdict for a transaction. When a tx hash is
// given the fetched to/data/value win over any caller-provided values. Only
// the primary fetch can fail; everything downstream degrades.
func (a *TransactionAnalyzer) Analyze(ctx context.Context, req models.AnalyzeTransactionRequest) (*models.TransactionAnalysisResponse, error) {
	var txData *models.TransactionData
	if req.TxHash != "" {
		fetched, err := a.provider.GetTransaction(ctx, req.TxHash)
		if err != nil {
			return nil, err
		}
		txData = fetched
	}

	to, data, value := req.To, req.Data, req.Value
	if txData != nil {
		to, data, value = txData.To, txData.Data, txData.Value
	}
	if data == "" {
		data = "0x"
	}
	if value == "" {
		value = "0"
	}

	fn := decodeFunction(data)

	var simulation *models.SimulationResult
	if to != "" && data != "" {
		from := ""
		if txData != nil {
			from = txData.From
		}
		simulation = a.provider.SimulateTransaction(ctx, to, data, value, from)
	}

	var destInfo map[string]any
	trusted := false
	if to != "" {
		if kc, ok := registry.LookupContract(to); ok {
			destInfo = map[string]any{"name": kc.Name, "type": kc.Type, "trusted": kc.Trusted}
			trusted = kc.Trusted
		}
	}

	signals := models.Signals{
		IsKnownScam:       to != "" && registry.IsKnownScam(to),
		TrustedContract:   trusted,
		UnlimitedApproval: fn.IsUnlimitedApproval,
		SetApprovalForAll: fn.Name == "setApprovalForAll",
		FunctionRisk:      fn.Risk,
		UnknownFunction:   fn.Name == "Unknown Function",
	}

	riskScore := scoring.CalculateRisk(signals)

	return &models.TransactionAnalysisResponse{
		RiskScore:       riskScore,
		RiskLevel:       scoring.RiskLevel(riskScore),
		RiskColor:       scoring.RiskColor(riskScore),
		To:              strings.ToLower(to),
		FunctionName:    fn.Name,
		FunctionType:    fn.Type,
		DecodedParams:   fn.Params,
		Simulation:      simulation,
		Warnings:        detectWarnings(signals, value),
		DestinationInfo: destInfo,
	}, nil
}

// decodeFunction classifies the call data. Trivial payloads are native
// transfers; unknown selectors degrade to a medium-risk unknown call.
func decodeFunction(data string) models.DecodedFunction {
	if data == "" || data == "0x" || data == "0x0" || data == "0x00" {
		return models.DecodedFunction{Name: "Native Transfer", Type: "Transfer", Risk: "low"}
	}

	selector := strings.ToLower(data)
	if len(selector) > 10 {
		selector = selector[:10]
	}
	sig, ok := registry.LookupSelector(selector)
	if !ok {
		return models.DecodedFunction{Name: "Unknown Function", Type: "Unknown", Risk: "medium", Selector: selector}
	}

	fn := models.DecodedFunction{
		Name:        sig.Name,
		Type:        sig.Type,
		Risk:        sig.Risk,
		Description: sig.Description,
	}

	// approve(address,uint256): word 1 holds the spender, word 2 the amount.
	if sig.Name == "approve" && len(data) >= 138 {
		if amount, ok := new(big.Int).SetString(data[74:138], 16); ok {
			fn.IsUnlimitedApproval = amount.Cmp(registry.UnlimitedThreshold) > 0
			fn.Params = map[string]string{
				"spender": "0x" + strings.ToLower(data[34:74]),
				"amount":  amount.String(),
			}
		}
	}

	return fn
}

// detectWarnings emits warnings in severity order. A value parse failure is
// silent.
func detectWarnings(signals models.Signals, value string) []models.Warning {
	warnings := []models.Warning{}
	if signals.IsKnownScam {
		warnings = append(warnings, models.Warning{Level: "critical", Message: "Destination is a known scam address!"})
	}
	if signals.UnlimitedApproval {
		warnings = append(warnings, models.Warning{Level: "critical", Message: "This grants UNLIMITED token spending to the spender."})
	}
	if signals.SetApprovalForAll {
		warnings = append(warnings, models.Warning{Level: "high", Message: "This approves ALL NFTs in this collection."})
	}
	if signals.UnknownFunction {
		warnings = append(warnings, models.Warning{Level: "medium", Message: "Unknown function call — cannot determine intent."})
	}

	if value != "" {
		if wei, ok := new(big.Int).SetString(value, 10); ok {
			eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
			if eth.Cmp(big.NewFloat(10)) > 0 {
				f, _ := eth.Float64()
				warnings = append(warnings, models.Warning{Level: "medium", Message: fmt.Sprintf("High-value transfer: %.4f ETH", f)})
			}
		}
	}

	return warnings
}
