package shield

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/ayashield/shield-engine/internal/ai"
	"github.com/ayashield/shield-engine/internal/analyzer"
	"github.com/ayashield/shield-engine/internal/db"
	"github.com/ayashield/shield-engine/internal/receipt"
	"github.com/ayashield/shield-engine/internal/revoke"
	"github.com/ayashield/shield-engine/pkg/models"
)

// Risk scores at or above this are broadcast as shield alerts and counted
// as blocked threats.
const criticalRiskThreshold = 76

const defaultRevokeThreshold = 50

const statusScanThreshold = 30

const helpMessage = "I'm Aya Shield, your crypto security copilot. I can analyze transactions (paste a tx hash), check contracts for risks (paste an address), scan your wallet for dangerous approvals, generate shareable receipts, or explain security concepts. What would you like to do?"

// EventLog is the audit-trail capability. Persistence failures are logged
// and ignored, never surfaced to the caller.
type EventLog interface {
	LogEvent(ctx context.Context, ev db.ShieldEvent) error
	CountEventsSince(ctx context.Context, userID string, since time.Time) (int, error)
	CountBlockedThreats(ctx context.Context, userID string, since time.Time) (int, error)
}

// ShieldAlert is pushed to connected clients when an analysis crosses the
// critical threshold.
type ShieldAlert struct {
	Type      string `json:"type"`
	Chain     string `json:"chain"`
	Target    string `json:"target,omitempty"`
	TxHash    string `json:"tx_hash,omitempty"`
	RiskScore int    `json:"risk_score"`
	Message   string `json:"message"`
}

// AlertSink receives critical-risk alerts for fan-out to live clients.
type AlertSink interface {
	BroadcastShieldAlert(alert ShieldAlert)
}

// Services is the aggregate of every analysis capability, constructed once
// at startup and threaded through the request handlers. Events and Alerts
// may be nil; the operations degrade without them.
type Services struct {
	Transactions *analyzer.TransactionAnalyzer
	Contracts    *analyzer.ContractAnalyzer
	Revoker      *revoke.Scanner
	Receipts     *receipt.Generator
	Intelligence ai.Intelligence
	Events       EventLog
	Alerts       AlertSink
}

// AnalyzeTransaction runs the risk pipeline and enriches the verdict with
// model-written text. Only the primary chain fetch can fail.
func (s *Services) AnalyzeTransaction(ctx context.Context, userID string, req models.AnalyzeTransactionRequest) (*models.TransactionAnalysisResponse, error) {
	resp, err := s.Transactions.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	resp.AIExplanation = s.Intelligence.GenerateExplanation(ctx, resp, "tx_analysis")

	// resp.To carries the destination the analyzer actually scored, which
	// for a hash-only request came from the fetched transaction.
	s.logEvent(ctx, db.ShieldEvent{
		UserID:    userID,
		EventType: "analyze_transaction",
		Chain:     string(req.Chain),
		Target:    resp.To,
		TxHash:    strings.ToLower(req.TxHash),
		RiskScore: &resp.RiskScore,
		Result:    resp.RiskLevel,
	})
	s.alertIfCritical(ShieldAlert{
		Type:      "transaction",
		Chain:     string(req.Chain),
		Target:    resp.To,
		TxHash:    strings.ToLower(req.TxHash),
		RiskScore: resp.RiskScore,
		Message:   fmt.Sprintf("Critical-risk transaction detected (%s)", resp.FunctionName),
	})
	return resp, nil
}

// AnalyzeContract produces the trust verdict for an address.
func (s *Services) AnalyzeContract(ctx context.Context, userID string, req models.AnalyzeContractRequest) (*models.ContractAnalysisResponse, error) {
	resp, err := s.Contracts.Analyze(ctx, req.Address, req.Chain)
	if err != nil {
		return nil, err
	}

	resp.AIExplanation = s.Intelligence.GenerateExplanation(ctx, resp, "contract_analysis")

	s.logEvent(ctx, db.ShieldEvent{
		UserID:     userID,
		EventType:  "analyze_contract",
		Chain:      string(req.Chain),
		Target:     strings.ToLower(req.Address),
		TrustScore: &resp.TrustScore,
		Result:     resp.TrustLevel,
	})
	if resp.IsKnownScam {
		s.alertIfCritical(ShieldAlert{
			Type:      "contract",
			Chain:     string(req.Chain),
			Target:    strings.ToLower(req.Address),
			RiskScore: 100,
			Message:   "Known scam address flagged",
		})
	}
	return resp, nil
}

// GenerateReceipt never fails; the generator degrades to a mock receipt.
func (s *Services) GenerateReceipt(ctx context.Context, userID string, req models.GenerateReceiptRequest) *models.ReceiptResponse {
	resp := s.Receipts.Generate(ctx, req.TxHash, req.Chain, req.Style)
	resp.AISummary = s.Intelligence.GenerateExplanation(ctx, resp, "receipt")

	s.logEvent(ctx, db.ShieldEvent{
		UserID:    userID,
		EventType: "generate_receipt",
		Chain:     string(req.Chain),
		TxHash:    strings.ToLower(req.TxHash),
		Result:    resp.ActionSummary,
	})
	return resp
}

// EmergencyRevoke scans a wallet's approvals and builds revoke calldata for
// the rows at or above the threshold.
func (s *Services) EmergencyRevoke(ctx context.Context, userID string, req models.EmergencyRevokeRequest) *models.EmergencyRevokeResponse {
	threshold := defaultRevokeThreshold
	if req.RiskThreshold != nil && *req.RiskThreshold >= 0 && *req.RiskThreshold <= 100 {
		threshold = *req.RiskThreshold
	}

	resp := s.Revoker.ScanAndRevoke(ctx, req.WalletAddress, req.Chain, threshold)
	resp.AIExplanation = s.Intelligence.GenerateExplanation(ctx, resp, "revoke")

	s.logEvent(ctx, db.ShieldEvent{
		UserID:    userID,
		EventType: "emergency_revoke",
		Chain:     string(req.Chain),
		Target:    strings.ToLower(req.WalletAddress),
		Result:    fmt.Sprintf("%d risky of %d", resp.RiskyApprovals, resp.TotalApprovals),
	})
	if resp.RiskyApprovals > 0 {
		s.alertIfCritical(ShieldAlert{
			Type:      "revoke",
			Chain:     string(req.Chain),
			Target:    strings.ToLower(req.WalletAddress),
			RiskScore: criticalRiskThreshold,
			Message:   fmt.Sprintf("%d risky approvals found", resp.RiskyApprovals),
		})
	}
	return resp
}

// ShieldStatus summarizes a wallet's security posture from a live approval
// scan plus the recent event log.
func (s *Services) ShieldStatus(ctx context.Context, userID string, req models.ShieldStatusRequest) *models.ShieldStatusResponse {
	scan := s.Revoker.ScanAndRevoke(ctx, req.WalletAddress, req.Chain, statusScanThreshold)

	score, level := statusBand(scan.RiskyApprovals)

	resp := &models.ShieldStatusResponse{
		Score:          score,
		Level:          level,
		TotalApprovals: scan.TotalApprovals,
		RiskyApprovals: scan.RiskyApprovals,
	}

	if s.Events != nil {
		since := time.Now().AddDate(0, 0, -30)
		if n, err := s.Events.CountEventsSince(ctx, userID, since); err == nil {
			resp.EventsLast30d = n
		} else {
			log.Printf("[shield] event count failed: %v", err)
		}
		if n, err := s.Events.CountBlockedThreats(ctx, userID, since); err == nil {
			resp.BlockedThreats = n
		} else {
			log.Printf("[shield] blocked-threat count failed: %v", err)
		}
	}

	s.logEvent(ctx, db.ShieldEvent{
		UserID:    userID,
		EventType: "shield_status",
		Chain:     string(req.Chain),
		Target:    strings.ToLower(req.WalletAddress),
		Result:    level,
	})
	return resp
}

func statusBand(risky int) (int, string) {
	switch {
	case risky == 0:
		return 95, "excellent"
	case risky <= 2:
		return 70, "good"
	case risky <= 5:
		return 40, "at_risk"
	default:
		return 20, "critical"
	}
}

func (s *Services) logEvent(ctx context.Context, ev db.ShieldEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.LogEvent(ctx, ev); err != nil {
		log.Printf("[shield] event log write failed: %v", err)
	}
}

func (s *Services) alertIfCritical(alert ShieldAlert) {
	if s.Alerts == nil || alert.RiskScore < criticalRiskThreshold {
		return
	}
	s.Alerts.BroadcastShieldAlert(alert)
}

// --- Chat router ---

var hexTokenPattern = regexp.MustCompile(`0x[a-fA-F0-9]+`)

// extractHexToken pulls the first hex token of exactly the wanted payload
// length from the message. Matching by exact length keeps a 64-char hash
// from being misread as a 40-char address.
func extractHexToken(message string, hexLen int) string {
	for _, tok := range hexTokenPattern.FindAllString(message, -1) {
		if len(tok) == 2+hexLen {
			return strings.ToLower(tok)
		}
	}
	return ""
}

var missingInputPrompts = map[string]string{
	"analyze_tx":       "I need a transaction hash to analyze. Please paste the full 0x... hash (66 characters).",
	"receipt":          "I need a transaction hash to generate a receipt. Please paste the full 0x... hash.",
	"analyze_contract": "I need a contract address to check. Please paste the 0x... address (42 characters).",
	"revoke":           "I need your wallet address to scan for risky approvals. Please paste the 0x... address.",
	"status":           "I need your wallet address to check its security status. Please paste the 0x... address.",
}

// Chat classifies the message, fills missing parameters by regex, and
// dispatches to the matching operation. It never fabricates a hash or
// address; when the input is missing it asks for it.
func (s *Services) Chat(ctx context.Context, userID string, req models.ChatRequest) *models.ChatResponse {
	intent := s.Intelligence.ParseIntent(ctx, req.Message)
	category := intent.Category

	switch category {
	case "analyze_tx", "receipt":
		txHash := strings.ToLower(intent.Parameters["tx_hash"])
		if !models.IsValidTxHash(txHash) {
			txHash = extractHexToken(req.Message, 64)
		}
		if txHash == "" {
			return &models.ChatResponse{Intent: category, Message: missingInputPrompts[category]}
		}
		if category == "receipt" {
			resp := s.GenerateReceipt(ctx, userID, models.GenerateReceiptRequest{TxHash: txHash, Chain: req.Chain})
			return &models.ChatResponse{
				Intent:  category,
				Message: resp.AISummary,
				Data:    map[string]any{"tx_hash": txHash, "receipt": resp},
			}
		}
		resp, err := s.AnalyzeTransaction(ctx, userID, models.AnalyzeTransactionRequest{TxHash: txHash, Chain: req.Chain})
		if err != nil {
			return &models.ChatResponse{Intent: category, Message: "I couldn't fetch that transaction. Double-check the hash and the chain, then try again."}
		}
		return &models.ChatResponse{
			Intent:  category,
			Message: chatVerdict(resp),
			Data:    map[string]any{"tx_hash": txHash, "analysis": resp},
		}

	case "analyze_contract":
		address := strings.ToLower(intent.Parameters["address"])
		if !models.IsValidAddress(address) {
			address = extractHexToken(req.Message, 40)
		}
		if address == "" {
			return &models.ChatResponse{Intent: category, Message: missingInputPrompts[category]}
		}
		resp, err := s.AnalyzeContract(ctx, userID, models.AnalyzeContractRequest{Address: address, Chain: req.Chain})
		if err != nil {
			return &models.ChatResponse{Intent: category, Message: "I couldn't analyze that contract right now. Please try again."}
		}
		message := resp.AIExplanation
		if message == "" {
			message = fmt.Sprintf("Trust score %d/100 (%s).", resp.TrustScore, resp.TrustLevel)
		}
		return &models.ChatResponse{
			Intent:  category,
			Message: message,
			Data:    map[string]any{"address": address, "analysis": resp},
		}

	case "revoke", "status":
		wallet := strings.ToLower(intent.Parameters["wallet_address"])
		if !models.IsValidAddress(wallet) {
			wallet = extractHexToken(req.Message, 40)
		}
		if wallet == "" {
			return &models.ChatResponse{Intent: category, Message: missingInputPrompts[category]}
		}
		if category == "revoke" {
			resp := s.EmergencyRevoke(ctx, userID, models.EmergencyRevokeRequest{
				WalletAddress: wallet, Chain: req.Chain,
			})
			message := resp.AIExplanation
			if message == "" {
				message = fmt.Sprintf("Found %d approvals, %d risky.", resp.TotalApprovals, resp.RiskyApprovals)
			}
			return &models.ChatResponse{
				Intent:  category,
				Message: message,
				Data:    map[string]any{"wallet_address": wallet, "scan": resp},
			}
		}
		resp := s.ShieldStatus(ctx, userID, models.ShieldStatusRequest{WalletAddress: wallet, Chain: req.Chain})
		return &models.ChatResponse{
			Intent:  category,
			Message: fmt.Sprintf("Shield score %d/100 (%s). %d approvals total, %d risky.", resp.Score, resp.Level, resp.TotalApprovals, resp.RiskyApprovals),
			Data:    map[string]any{"wallet_address": wallet, "status": resp},
		}

	case "explain":
		concept := intent.Parameters["concept"]
		if concept == "" {
			concept = req.Message
		}
		return &models.ChatResponse{
			Intent:  category,
			Message: s.Intelligence.ExplainConcept(ctx, concept),
		}

	default:
		return &models.ChatResponse{Intent: "general", Message: helpMessage}
	}
}

// chatVerdict summarizes a transaction verdict for the chat channel when
// the model text is empty.
func chatVerdict(resp *models.TransactionAnalysisResponse) string {
	if resp.AIExplanation != "" {
		return resp.AIExplanation
	}
	return fmt.Sprintf("Risk score %d/100 (%s) for %s.", resp.RiskScore, resp.RiskLevel, resp.FunctionName)
}
