package analyzer

import (
	"context"
	"strings"

	"github.com/ayashield/shield-engine/internal/bytecode"
	"github.com/ayashield/shield-engine/internal/evm"
	"github.com/ayashield/shield-engine/internal/registry"
	"github.com/ayashield/shield-engine/internal/scoring"
	"github.com/ayashield/shield-engine/pkg/models"
)

// ContractAnalyzer combines the registry fast paths with chain metadata and
// bytecode inspection to produce a trust verdict for an address.
type ContractAnalyzer struct {
	provider evm.Provider
}

func NewContractAnalyzer(provider evm.Provider) *ContractAnalyzer {
	return &ContractAnalyzer{provider: provider}
}

// Analyze evaluates a contract address. Known-trusted and known-scam
// addresses short-circuit without touching the chain.
func (a *ContractAnalyzer) Analyze(ctx context.Context, address string, chain models.Chain) (*models.ContractAnalysisResponse, error) {
	address = strings.ToLower(address)

	if kc, ok := registry.LookupContract(address); ok {
		return &models.ContractAnalysisResponse{
			TrustScore:   95,
			TrustLevel:   "highly_trusted",
			TrustColor:   scoring.TrustColor(95),
			Address:      address,
			Chain:        string(chain),
			ContractName: kc.Name,
			ContractType: kc.Type,
			IsVerified:   true,
			RedFlags:     []models.RedFlag{},
		}, nil
	}

	if registry.IsKnownScam(address) {
		return &models.ContractAnalysisResponse{
			TrustScore:  0,
			TrustLevel:  "dangerous",
			TrustColor:  scoring.TrustColor(0),
			Address:     address,
			Chain:       string(chain),
			IsKnownScam: true,
			RedFlags: []models.RedFlag{
				{Score: 90, Severity: "critical", Message: "Known scam/phishing address"},
			},
		}, nil
	}

	meta, err := a.provider.GetContractMetadata(ctx, address)
	if err != nil {
		return nil, err
	}
	code := bytecode.Analyze(meta.Bytecode)

	signals := models.Signals{
		VerifiedContract:   meta.IsVerified,
		UnverifiedContract: meta.HasCode && !meta.IsVerified,
		ContractAgeDays:    meta.AgeDays,
		TxCount:            meta.TxCount,
		HasSelfdestruct:    code.HasSelfdestruct,
		HasDelegatecall:    code.HasDelegatecall,
	}

	trustScore := scoring.CalculateTrust(signals)

	contractType := ""
	if meta.ContractName != "" {
		contractType = inferContractType(meta.ContractName, meta.SourceCode)
	}

	txCount := meta.TxCount
	return &models.ContractAnalysisResponse{
		TrustScore:   trustScore,
		TrustLevel:   scoring.TrustLevel(trustScore),
		TrustColor:   scoring.TrustColor(trustScore),
		Address:      address,
		Chain:        string(chain),
		ContractName: meta.ContractName,
		ContractType: contractType,
		IsVerified:   meta.IsVerified,
		AgeDays:      meta.AgeDays,
		TxCount:      &txCount,
		RedFlags:     scoring.RedFlags(signals),
	}, nil
}

// inferContractType is a keyword heuristic over the contract name and the
// first 500 characters of source. First match wins.
func inferContractType(name, source string) string {
	if len(source) > 500 {
		source = source[:500]
	}
	combined := strings.ToLower(name + " " + source)

	categories := []struct {
		label    string
		keywords []string
	}{
		{"DEX", []string{"swap", "router", "exchange", "dex"}},
		{"Lending", []string{"lend", "borrow", "aave", "compound"}},
		{"NFT", []string{"nft", "erc721", "erc1155", "collectible"}},
		{"Token", []string{"token", "erc20", "coin"}},
		{"Bridge", []string{"bridge", "relay"}},
		{"Staking", []string{"stake", "staking", "validator"}},
	}
	for _, cat := range categories {
		for _, kw := range cat.keywords {
			if strings.Contains(combined, kw) {
				return cat.label
			}
		}
	}
	return "Smart Contract"
}
