package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ayashield/shield-engine/internal/analyzer"
	"github.com/ayashield/shield-engine/internal/receipt"
	"github.com/ayashield/shield-engine/internal/revoke"
	"github.com/ayashield/shield-engine/internal/shield"
	"github.com/ayashield/shield-engine/pkg/models"
)

type stubProvider struct{}

func (s *stubProvider) GetTransaction(ctx context.Context, txHash string) (*models.TransactionData, error) {
	return nil, nil
}

func (s *stubProvider) SimulateTransaction(ctx context.Context, to, data, value, from string) *models.SimulationResult {
	return &models.SimulationResult{Success: true}
}

func (s *stubProvider) GetContractMetadata(ctx context.Context, address string) (*models.ContractMetadata, error) {
	return &models.ContractMetadata{Address: address, HasCode: true, TxCount: 500}, nil
}

func (s *stubProvider) GetReceipt(ctx context.Context, txHash string) (*models.TxReceipt, error) {
	return nil, nil
}

func (s *stubProvider) GetBlock(ctx context.Context, number uint64) (*models.Block, error) {
	return nil, nil
}

func (s *stubProvider) ScanApprovalLogs(ctx context.Context, owner string) ([]models.RawApproval, error) {
	return []models.RawApproval{}, nil
}

type stubIntelligence struct{}

func (s *stubIntelligence) ParseIntent(ctx context.Context, message string) models.Intent {
	return models.Intent{Category: "general", Parameters: map[string]string{}}
}

func (s *stubIntelligence) GenerateExplanation(ctx context.Context, data any, context string) string {
	return ""
}

func (s *stubIntelligence) ExplainConcept(ctx context.Context, concept string) string {
	return ""
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := &stubProvider{}
	hub := NewHub()
	go hub.Run()

	services := &shield.Services{
		Transactions: analyzer.NewTransactionAnalyzer(provider),
		Contracts:    analyzer.NewContractAnalyzer(provider),
		Revoker:      revoke.NewScanner(provider),
		Receipts:     receipt.NewGenerator(provider, 3500),
		Intelligence: &stubIntelligence{},
		Alerts:       hub,
	}
	return SetupRouter(services, nil, hub)
}

func doJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "operational") {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}

func TestAnalyzeContractValidation(t *testing.T) {
	r := testRouter(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"Valid", `{"address":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48","chain":"ethereum"}`, 200},
		{"Bad Address", `{"address":"0x123","chain":"ethereum"}`, 400},
		{"Bad Chain", `{"address":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48","chain":"solana"}`, 400},
		{"Empty Chain Defaults", `{"address":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}`, 200},
		{"Malformed JSON", `{`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, "/api/v1/shield/analyze-contract", tt.body)
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.code, w.Body.String())
			}
		})
	}
}

func TestAnalyzeTransactionRequiresTarget(t *testing.T) {
	r := testRouter(t)
	w := doJSON(t, r, "/api/v1/shield/analyze-transaction", `{"chain":"ethereum"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/shield/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("history without a database must 503, got %d", w.Code)
	}
}

func TestStaticTokenAuth(t *testing.T) {
	t.Setenv("API_AUTH_TOKEN", "secret-token")
	r := testRouter(t)

	body := `{"address":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48","chain":"ethereum"}`

	// Missing header
	w := doJSON(t, r, "/api/v1/shield/analyze-contract", body)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing header status = %d, want 401", w.Code)
	}

	// Wrong token
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shield/analyze-contract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("wrong token status = %d, want 403", w.Code)
	}

	// Correct token
	req = httptest.NewRequest(http.MethodPost, "/api/v1/shield/analyze-contract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("correct token status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	// Health stays public
	hreq := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	hw := httptest.NewRecorder()
	r.ServeHTTP(hw, hreq)
	if hw.Code != http.StatusOK {
		t.Errorf("health must be public, got %d", hw.Code)
	}
}
