package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// geminiServer answers generateContent with a fixed candidate text.
func geminiServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
	}))
}

func TestParseIntentWithoutKeyDegradesToGeneral(t *testing.T) {
	g := NewGeminiClient("", "")
	intent := g.ParseIntent(context.Background(), "check 0xabc")
	if intent.Category != "general" || intent.Confidence != 0 {
		t.Errorf("expected general/0 without an API key, got %+v", intent)
	}
	if intent.Parameters == nil {
		t.Error("parameters map must never be nil")
	}
}

func TestParseIntentExtractsJSONBlock(t *testing.T) {
	hash := "0x" + strings.Repeat("a", 64)
	srv := geminiServer(t, "Here you go:\n```json\n"+
		`{"category": "analyze_tx", "confidence": 0.92, "parameters": {"tx_hash": "`+hash+`"}, "reasoning": "hash present"}`+
		"\n```")
	defer srv.Close()

	g := NewGeminiClient("test-key", "test-model")
	g.baseURL = srv.URL

	intent := g.ParseIntent(context.Background(), "please check "+hash)
	if intent.Category != "analyze_tx" {
		t.Errorf("category = %q", intent.Category)
	}
	if intent.Parameters["tx_hash"] != hash {
		t.Errorf("tx_hash = %q", intent.Parameters["tx_hash"])
	}
	if intent.Confidence != 0.92 {
		t.Errorf("confidence = %v", intent.Confidence)
	}
}

func TestParseIntentGarbageResponse(t *testing.T) {
	srv := geminiServer(t, "I cannot classify this message.")
	defer srv.Close()

	g := NewGeminiClient("test-key", "")
	g.baseURL = srv.URL

	intent := g.ParseIntent(context.Background(), "hello")
	if intent.Category != "general" {
		t.Errorf("unparseable response must degrade to general, got %q", intent.Category)
	}
}

func TestParseIntentClampsConfidence(t *testing.T) {
	srv := geminiServer(t, `{"category": "revoke", "confidence": 3.5, "parameters": {}}`)
	defer srv.Close()

	g := NewGeminiClient("test-key", "")
	g.baseURL = srv.URL

	intent := g.ParseIntent(context.Background(), "scan my wallet")
	if intent.Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %v", intent.Confidence)
	}
}

func TestGenerateExplanationFallsBack(t *testing.T) {
	g := NewGeminiClient("", "")
	msg := g.GenerateExplanation(context.Background(), map[string]int{"risk_score": 40}, "tx_analysis")
	if msg != fallbackMessages["tx_analysis"] {
		t.Errorf("expected the canned fallback, got %q", msg)
	}
}

func TestGenerateExplanationUnknownContext(t *testing.T) {
	g := NewGeminiClient("", "")
	if msg := g.GenerateExplanation(context.Background(), nil, "nonexistent"); msg != "" {
		t.Errorf("unknown context should yield empty text, got %q", msg)
	}
}

func TestGenerateExplanationUsesModelText(t *testing.T) {
	srv := geminiServer(t, "This swap routes through Uniswap V2 and looks safe. ")
	defer srv.Close()

	g := NewGeminiClient("test-key", "")
	g.baseURL = srv.URL

	msg := g.GenerateExplanation(context.Background(), map[string]string{}, "tx_analysis")
	if msg != "This swap routes through Uniswap V2 and looks safe." {
		t.Errorf("got %q", msg)
	}
}

func TestExplainConceptFallsBack(t *testing.T) {
	g := NewGeminiClient("", "")
	if msg := g.ExplainConcept(context.Background(), "honeypot"); msg != fallbackMessages["explain"] {
		t.Errorf("got %q", msg)
	}
}
