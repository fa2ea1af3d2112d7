package revoke

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ayashield/shield-engine/pkg/models"
)

type stubProvider struct {
	approvals []models.RawApproval
	scanErr   error
}

func (s *stubProvider) GetTransaction(ctx context.Context, txHash string) (*models.TransactionData, error) {
	return nil, nil
}

func (s *stubProvider) SimulateTransaction(ctx context.Context, to, data, value, from string) *models.SimulationResult {
	return &models.SimulationResult{Success: true}
}

func (s *stubProvider) GetContractMetadata(ctx context.Context, address string) (*models.ContractMetadata, error) {
	return nil, nil
}

func (s *stubProvider) GetReceipt(ctx context.Context, txHash string) (*models.TxReceipt, error) {
	return nil, nil
}

func (s *stubProvider) GetBlock(ctx context.Context, number uint64) (*models.Block, error) {
	return nil, nil
}

func (s *stubProvider) ScanApprovalLogs(ctx context.Context, owner string) ([]models.RawApproval, error) {
	return s.approvals, s.scanErr
}

const wallet = "0x1111111111111111111111111111111111111111"

func TestRevokeCalldataFormat(t *testing.T) {
	spender := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	calldata := RevokeCalldata(spender)

	raw := common.FromHex(calldata)
	if len(raw) != 68 {
		t.Fatalf("calldata length = %d bytes, want 68", len(raw))
	}
	if !strings.HasPrefix(calldata, "0x095ea7b3") {
		t.Errorf("calldata must start with the approve selector, got %s", calldata[:10])
	}
	// Word 1: left-padded spender.
	if !strings.Contains(strings.ToLower(calldata), strings.Repeat("a", 40)) {
		t.Errorf("calldata missing padded spender: %s", calldata)
	}
	// Word 2: all zeros.
	for i, b := range raw[36:] {
		if b != 0 {
			t.Fatalf("amount word byte %d is %x, want 0", i, b)
		}
	}
}

func TestScanAndRevokeSortsAndFilters(t *testing.T) {
	s := NewScanner(&stubProvider{approvals: []models.RawApproval{
		// Finite approval to a trusted spender: low risk.
		{TokenAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Spender: "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", Amount: "1000", IsUnlimited: false},
		// Unlimited approval to an unknown spender: high risk.
		{TokenAddress: "0xdac17f958d2ee523a2206206994597c13d831ec7", Spender: "0xcccccccccccccccccccccccccccccccccccccccc", Amount: "999999999", IsUnlimited: true},
		// Approval to a known scam: critical.
		{TokenAddress: "0x6b175474e89094c44da98b954eedeac495271d0f", Spender: "0xbad00000000000000000000000000000000bad01", Amount: "5", IsUnlimited: false},
	}})

	resp := s.ScanAndRevoke(context.Background(), wallet, models.ChainEthereum, 50)

	if resp.TotalApprovals != 3 {
		t.Fatalf("total_approvals = %d, want 3", resp.TotalApprovals)
	}
	for i := 1; i < len(resp.Approvals); i++ {
		if resp.Approvals[i].RiskScore > resp.Approvals[i-1].RiskScore {
			t.Errorf("approvals not sorted descending at %d", i)
		}
	}
	if resp.Approvals[0].Spender != "0xbad00000000000000000000000000000000bad01" {
		t.Errorf("scam spender should rank first, got %s", resp.Approvals[0].Spender)
	}

	// Token names resolve from the registry.
	if resp.Approvals[0].TokenName != "DAI" {
		t.Errorf("token_name = %q, want DAI", resp.Approvals[0].TokenName)
	}

	if resp.RiskyApprovals != len(resp.RevokeTxs) {
		t.Errorf("risky_approvals %d != revoke_txs %d", resp.RiskyApprovals, len(resp.RevokeTxs))
	}
	if len(resp.Approvals) < len(resp.RevokeTxs) {
		t.Error("approvals list must cover at least the risky rows")
	}

	// The trusted-spender row stays below the threshold.
	for _, tx := range resp.RevokeTxs {
		if tx.To == "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
			t.Error("trusted-spender approval should not get a revoke tx at threshold 50")
		}
	}
}

func TestScanAndRevokeUnlimitedScoresHigh(t *testing.T) {
	s := NewScanner(&stubProvider{approvals: []models.RawApproval{
		{TokenAddress: "0xdac17f958d2ee523a2206206994597c13d831ec7", Spender: "0xcccccccccccccccccccccccccccccccccccccccc", Amount: "999", IsUnlimited: true},
	}})

	resp := s.ScanAndRevoke(context.Background(), wallet, models.ChainEthereum, 30)
	if resp.Approvals[0].RiskScore < 30 {
		t.Errorf("unlimited approval risk = %d, want >= 30", resp.Approvals[0].RiskScore)
	}
	if !resp.Approvals[0].IsUnlimited {
		t.Error("is_unlimited lost in scoring")
	}
}

func TestScanAndRevokeDegradesOnScanFailure(t *testing.T) {
	s := NewScanner(&stubProvider{scanErr: errors.New("explorer down")})

	resp := s.ScanAndRevoke(context.Background(), wallet, models.ChainEthereum, 50)
	if resp.TotalApprovals != 0 || resp.RiskyApprovals != 0 {
		t.Errorf("scan failure must degrade to empty, got %+v", resp)
	}
	if resp.TotalAtRiskUSD != "$0" {
		t.Errorf("total_at_risk_usd = %q, want $0", resp.TotalAtRiskUSD)
	}
}

func TestUnknownTokenName(t *testing.T) {
	s := NewScanner(&stubProvider{approvals: []models.RawApproval{
		{TokenAddress: "0x9999999999999999999999999999999999999999", Spender: "0xcccccccccccccccccccccccccccccccccccccccc", Amount: "1", IsUnlimited: false},
	}})
	resp := s.ScanAndRevoke(context.Background(), wallet, models.ChainEthereum, 100)
	if resp.Approvals[0].TokenName != "Unknown Token" {
		t.Errorf("token_name = %q, want Unknown Token", resp.Approvals[0].TokenName)
	}
}
