package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/ayashield/shield-engine/pkg/models"
)

// stubProvider is a canned chain for the analyzers. Unset fields read as
// not found.
type stubProvider struct {
	tx       *models.TransactionData
	txErr    error
	sim      *models.SimulationResult
	meta     *models.ContractMetadata
	metaErr  error
	receipt  *models.TxReceipt
	block    *models.Block
	approval []models.RawApproval
	scanErr  error
}

func (s *stubProvider) GetTransaction(ctx context.Context, txHash string) (*models.TransactionData, error) {
	return s.tx, s.txErr
}

func (s *stubProvider) SimulateTransaction(ctx context.Context, to, data, value, from string) *models.SimulationResult {
	if s.sim != nil {
		return s.sim
	}
	return &models.SimulationResult{Success: true, GasUsed: 21000}
}

func (s *stubProvider) GetContractMetadata(ctx context.Context, address string) (*models.ContractMetadata, error) {
	return s.meta, s.metaErr
}

func (s *stubProvider) GetReceipt(ctx context.Context, txHash string) (*models.TxReceipt, error) {
	return s.receipt, nil
}

func (s *stubProvider) GetBlock(ctx context.Context, number uint64) (*models.Block, error) {
	return s.block, nil
}

func (s *stubProvider) ScanApprovalLogs(ctx context.Context, owner string) ([]models.RawApproval, error) {
	return s.approval, s.scanErr
}

func intPtr(v int) *int { return &v }

// approveCalldata builds approve(spender, amount) input data.
func approveCalldata(spender, amountHex string) string {
	return "0x095ea7b3" +
		strings.Repeat("0", 24) + strings.TrimPrefix(spender, "0x") +
		strings.Repeat("0", 64-len(amountHex)) + amountHex
}

func TestAnalyzeUnlimitedApprovalToScam(t *testing.T) {
	scam := "0xbad00000000000000000000000000000000bad01"
	data := approveCalldata(scam, strings.Repeat("f", 64))

	a := NewTransactionAnalyzer(&stubProvider{})
	resp, err := a.Analyze(context.Background(), models.AnalyzeTransactionRequest{
		To: scam, Data: data, Value: "0", Chain: models.ChainEthereum,
	})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if resp.FunctionName != "approve" {
		t.Errorf("function_name = %q, want approve", resp.FunctionName)
	}
	if resp.RiskScore != 100 {
		t.Errorf("risk_score = %d, want 100 (clamped)", resp.RiskScore)
	}
	if resp.RiskLevel != "critical" {
		t.Errorf("risk_level = %q, want critical", resp.RiskLevel)
	}

	var sawScam, sawUnlimited bool
	for _, w := range resp.Warnings {
		if w.Level == "critical" && strings.Contains(w.Message, "scam") {
			sawScam = true
		}
		if w.Level == "critical" && strings.Contains(w.Message, "UNLIMITED") {
			sawUnlimited = true
		}
	}
	if !sawScam || !sawUnlimited {
		t.Errorf("expected critical scam and unlimited warnings, got %+v", resp.Warnings)
	}

	if resp.DecodedParams["spender"] != scam {
		t.Errorf("decoded spender = %q, want %q", resp.DecodedParams["spender"], scam)
	}
}

func TestAnalyzeNativeTransfer(t *testing.T) {
	a := NewTransactionAnalyzer(&stubProvider{})
	resp, err := a.Analyze(context.Background(), models.AnalyzeTransactionRequest{
		To: "0xabcabcabcabcabcabcabcabcabcabcabcabcabca", Data: "0x",
		Value: "1000000000000000000", Chain: models.ChainEthereum,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FunctionName != "Native Transfer" || resp.FunctionType != "Transfer" {
		t.Errorf("got %s/%s, want Native Transfer/Transfer", resp.FunctionName, resp.FunctionType)
	}
	for _, w := range resp.Warnings {
		if strings.Contains(w.Message, "UNLIMITED") {
			t.Error("native transfer must not warn about unlimited approval")
		}
	}
	if resp.RiskLevel != "low" && resp.RiskLevel != "medium" {
		t.Errorf("risk_level = %q, want low or medium", resp.RiskLevel)
	}
}

func TestAnalyzeFetchedTxWinsOverCallerValues(t *testing.T) {
	fetchedTo := "0x7a250d5630b4cf539739df2c5dacb4c659f2488d" // Uniswap V2 Router
	a := NewTransactionAnalyzer(&stubProvider{
		tx: &models.TransactionData{
			Hash: "0x" + strings.Repeat("a", 64),
			From: "0x1111111111111111111111111111111111111111",
			To:   fetchedTo,
			Data: "0x38ed1739",
			Value: "0",
		},
	})
	resp, err := a.Analyze(context.Background(), models.AnalyzeTransactionRequest{
		TxHash: "0x" + strings.Repeat("a", 64),
		To:     "0xbad00000000000000000000000000000000bad01",
		Data:   "0x",
		Chain:  models.ChainEthereum,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FunctionName != "swapExactTokensForTokens" {
		t.Errorf("fetched data should win, got function %q", resp.FunctionName)
	}
	if resp.DestinationInfo == nil || resp.DestinationInfo["name"] != "Uniswap V2 Router" {
		t.Errorf("destination info should come from the fetched to: %+v", resp.DestinationInfo)
	}
}

func TestAnalyzeUnknownFunction(t *testing.T) {
	a := NewTransactionAnalyzer(&stubProvider{})
	resp, err := a.Analyze(context.Background(), models.AnalyzeTransactionRequest{
		To: "0xabcabcabcabcabcabcabcabcabcabcabcabcabca", Data: "0xdeadbeef", Chain: models.ChainEthereum,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FunctionName != "Unknown Function" {
		t.Errorf("function_name = %q", resp.FunctionName)
	}
	var sawUnknown bool
	for _, w := range resp.Warnings {
		if w.Level == "medium" && strings.Contains(w.Message, "Unknown function") {
			sawUnknown = true
		}
	}
	if !sawUnknown {
		t.Errorf("expected unknown-function warning, got %+v", resp.Warnings)
	}
}

func TestContractAnalyzerKnownTrusted(t *testing.T) {
	a := NewContractAnalyzer(&stubProvider{})

	// Checksummed USDC; the known-trusted fast path must not touch the chain.
	resp, err := a.Analyze(context.Background(), "0xA0b86991c6218b36c1d19D4a2e9eb0ce3606eB48", models.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	if resp.TrustScore != 95 || resp.TrustLevel != "highly_trusted" {
		t.Errorf("got score %d level %q", resp.TrustScore, resp.TrustLevel)
	}
	if resp.ContractName != "USDC" || !resp.IsVerified {
		t.Errorf("unexpected identity: %+v", resp)
	}
	if len(resp.RedFlags) != 0 {
		t.Errorf("trusted contract must have no red flags, got %+v", resp.RedFlags)
	}
}

func TestContractAnalyzerKnownScam(t *testing.T) {
	a := NewContractAnalyzer(&stubProvider{})
	resp, err := a.Analyze(context.Background(), "0xBAD00000000000000000000000000000000BAD01", models.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	if resp.TrustScore != 0 || resp.TrustLevel != "dangerous" || !resp.IsKnownScam {
		t.Errorf("scam verdict wrong: %+v", resp)
	}
	if len(resp.RedFlags) != 1 || resp.RedFlags[0].Severity != "critical" {
		t.Errorf("expected a single critical red flag, got %+v", resp.RedFlags)
	}
}

func TestContractAnalyzerFullPath(t *testing.T) {
	a := NewContractAnalyzer(&stubProvider{
		meta: &models.ContractMetadata{
			Address:      "0xabcabcabcabcabcabcabcabcabcabcabcabcabca",
			HasCode:      true,
			IsVerified:   true,
			ContractName: "SushiRouter",
			SourceCode:   "contract SushiRouter { function swap() }",
			AgeDays:      intPtr(700),
			TxCount:      20000,
			Bytecode:     "0x6000",
		},
	})
	resp, err := a.Analyze(context.Background(), "0xabcabcabcabcabcabcabcabcabcabcabcabcabca", models.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	// verified +15, age>365 +10, txcount>10000 +10, base 50 = 85
	if resp.TrustScore != 85 {
		t.Errorf("trust_score = %d, want 85", resp.TrustScore)
	}
	if resp.ContractType != "DEX" {
		t.Errorf("contract_type = %q, want DEX (name/source keyword match)", resp.ContractType)
	}
}

func TestContractAnalyzerUnverifiedNew(t *testing.T) {
	a := NewContractAnalyzer(&stubProvider{
		meta: &models.ContractMetadata{
			Address:  "0xabcabcabcabcabcabcabcabcabcabcabcabcabca",
			HasCode:  true,
			AgeDays:  intPtr(2),
			TxCount:  3,
			Bytecode: "0x6000ff",
		},
	})
	resp, err := a.Analyze(context.Background(), "0xabcabcabcabcabcabcabcabcabcabcabcabcabca", models.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	if resp.TrustScore != 0 {
		t.Errorf("trust_score = %d, want 0", resp.TrustScore)
	}
	if resp.TrustLevel != "dangerous" {
		t.Errorf("trust_level = %q", resp.TrustLevel)
	}

	var sawSelfdestruct bool
	for _, f := range resp.RedFlags {
		if strings.Contains(f.Message, "self-destruct") {
			sawSelfdestruct = true
		}
	}
	if !sawSelfdestruct {
		t.Errorf("expected selfdestruct red flag from bytecode, got %+v", resp.RedFlags)
	}
}

func TestContractAnalyzerCaseInsensitive(t *testing.T) {
	a := NewContractAnalyzer(&stubProvider{})
	lower, err := a.Analyze(context.Background(), "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", models.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	upper, err := a.Analyze(context.Background(), "0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", models.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	if lower.TrustScore != upper.TrustScore || lower.ContractName != upper.ContractName {
		t.Errorf("analysis must be case-insensitive: %+v vs %+v", lower, upper)
	}
}
