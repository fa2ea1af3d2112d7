package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ayashield/shield-engine/pkg/models"
)

// The model is an advisory collaborator: it classifies chat intents and
// writes explanations, but the verdict always comes from the deterministic
// scoring engine. Every failure here degrades, never propagates.

// Intelligence is the LLM capability the orchestrator depends on. Tests
// substitute a deterministic stub.
type Intelligence interface {
	ParseIntent(ctx context.Context, message string) models.Intent
	GenerateExplanation(ctx context.Context, data any, context string) string
	ExplainConcept(ctx context.Context, concept string) string
}

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const llmTimeout = 15 * time.Second

const agentSystemPrompt = `You are Aya Shield, an AI security agent specialized in cryptocurrency transaction analysis and wallet protection. Be direct and clear about risks, never sugarcoat dangers, and use plain English.`

const intentSystemPrompt = `You are the intent parser for Aya Shield, a crypto security tool.

Classify the user's message into one of:
- analyze_tx: Analyze a specific transaction (needs: tx_hash)
- analyze_contract: Check a contract/address for risks (needs: address)
- receipt: Generate a receipt for a transaction (needs: tx_hash)
- revoke: Scan wallet for risky approvals (needs: wallet_address)
- status: Check overall wallet security status (needs: wallet_address)
- explain: User wants explanation of a crypto concept
- general: General question or greeting

Reply with JSON only, no markdown:
{"category": "<category>", "confidence": <0.0-1.0>, "parameters": {"tx_hash": "0x...", "address": "0x...", "wallet_address": "0x...", "concept": "..."}, "reasoning": "<why>"}

Never fabricate addresses or hashes — only extract what is explicitly in the message.`

var analysisPrompts = map[string]string{
	"tx_analysis": `Analyze this transaction data and provide a security assessment.

Transaction Data:
%s

Provide a clear risk verdict, what the transaction does in plain English, any red flags, and a recommended action. Keep the response under 150 words. Be direct.`,

	"contract_analysis": `Analyze this smart contract and provide a trust assessment.

Contract Data:
%s

Provide a trust verdict, what kind of contract this is, key red flags found, and whether it is safe to interact with. Keep the response under 150 words.`,

	"receipt": `Create a brief, engaging summary of this transaction for sharing.

Transaction Data:
%s

Write a single sentence (under 140 chars) that captures what happened. Include one relevant emoji.`,

	"revoke": `Summarize these approval scan results and provide recommendations.

Scan Data:
%s

Cover how many approvals were found, how many are risky and why, and the priority order for revoking. Keep the response under 150 words. Be actionable.`,
}

var fallbackMessages = map[string]string{
	"tx_analysis":       "Transaction analysis complete. Please review the risk score and warnings above for details.",
	"contract_analysis": "Contract analysis complete. Check the trust score and any red flags identified.",
	"receipt":           "Transaction confirmed ✓",
	"revoke":            "Approval scan complete. Review the results above and consider revoking any high-risk approvals.",
	"explain":           "I couldn't generate an explanation. Please check the documentation for more information.",
}

var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// GeminiClient talks to the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{},
	}
}

// ParseIntent classifies a chat message. Any failure collapses to the
// general category with confidence 0, which the router treats as "no help
// from the model".
func (g *GeminiClient) ParseIntent(ctx context.Context, message string) models.Intent {
	if len(message) > 1000 {
		message = message[:1000]
	}
	message = strings.TrimSpace(message)

	text, err := g.generate(ctx, intentSystemPrompt+"\n\nUser message: "+message, 0.1, 500)
	if err != nil {
		log.Printf("[ai] intent parsing failed: %v", err)
		return models.Intent{Category: "general", Confidence: 0, Parameters: map[string]string{}, Reasoning: err.Error()}
	}

	block := jsonBlockPattern.FindString(text)
	if block == "" {
		return models.Intent{Category: "general", Confidence: 0.3, Parameters: map[string]string{}, Reasoning: "Could not parse intent"}
	}

	var parsed models.Intent
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return models.Intent{Category: "general", Confidence: 0.3, Parameters: map[string]string{}, Reasoning: "Could not parse intent"}
	}
	if parsed.Category == "" {
		parsed.Category = "general"
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	if parsed.Parameters == nil {
		parsed.Parameters = map[string]string{}
	}
	return parsed
}

// GenerateExplanation writes the human-readable companion text for an
// analysis result. Unknown contexts and failures fall back to the canned
// per-context message.
func (g *GeminiClient) GenerateExplanation(ctx context.Context, data any, analysisContext string) string {
	tmpl, ok := analysisPrompts[analysisContext]
	if !ok {
		return ""
	}

	payload, _ := json.Marshal(data)
	if len(payload) > 4000 {
		payload = payload[:4000]
	}

	text, err := g.generate(ctx, fmt.Sprintf(tmpl, string(payload)), 0.7, 300)
	if err != nil {
		log.Printf("[ai] explanation generation failed: %v", err)
		return fallbackMessages[analysisContext]
	}
	return strings.TrimSpace(text)
}

// ExplainConcept answers "what is X" questions in plain English.
func (g *GeminiClient) ExplainConcept(ctx context.Context, concept string) string {
	prompt := fmt.Sprintf(`Explain the crypto/blockchain security concept %q to someone who may be new to crypto: a simple definition, why it matters for security, and one key thing to watch out for. Keep the response under 100 words.`, concept)

	text, err := g.generate(ctx, prompt, 0.7, 200)
	if err != nil {
		log.Printf("[ai] concept explanation failed: %v", err)
		return fallbackMessages["explain"]
	}
	return strings.TrimSpace(text)
}

// --- generateContent REST plumbing ---

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("gemini api key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	body, _ := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: agentSystemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig:  &generationConfig{Temperature: temperature, MaxOutputTokens: maxTokens},
	})

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(raw))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty gemini response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
