package api

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ayashield/shield-engine/internal/db"
	"github.com/ayashield/shield-engine/internal/shield"
	"github.com/ayashield/shield-engine/pkg/models"
)

// The user never sees raw provider errors; analysis failures collapse to
// this fixed message with a 500.
const analysisFailedMessage = "Analysis failed. Please try again."

type APIHandler struct {
	services *shield.Services
	dbStore  *db.PostgresStore
	wsHub    *Hub
}

func SetupRouter(services *shield.Services, dbStore *db.PostgresStore, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://ayashield.xyz,https://www.ayashield.xyz
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{services: services, dbStore: dbStore, wsHub: wsHub}

	ratePerMin := 30
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_PER_MINUTE")); err == nil && v > 0 {
		ratePerMin = v
	}
	limiter := NewRateLimiter(ratePerMin, 10)
	auth := NewAuthenticator()

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", wsHub.Subscribe)

		protected := api.Group("/shield", auth.Middleware(), limiter.Middleware())
		{
			protected.POST("/analyze-transaction", handler.handleAnalyzeTransaction)
			protected.POST("/analyze-contract", handler.handleAnalyzeContract)
			protected.POST("/receipt", handler.handleGenerateReceipt)
			protected.POST("/emergency-revoke", handler.handleEmergencyRevoke)
			protected.POST("/status", handler.handleShieldStatus)
			protected.POST("/chat", handler.handleChat)
			protected.GET("/history", handler.handleHistory)
		}
	}

	return r
}

// normalizeChain defaults an empty chain to ethereum and rejects unknown
// networks.
func normalizeChain(chain models.Chain) (models.Chain, bool) {
	if chain == "" {
		return models.ChainEthereum, true
	}
	chain = models.Chain(strings.ToLower(string(chain)))
	return chain, chain.IsValid()
}

func (h *APIHandler) handleAnalyzeTransaction(c *gin.Context) {
	var req models.AnalyzeTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	chain, ok := normalizeChain(req.Chain)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported chain"})
		return
	}
	req.Chain = chain

	if req.TxHash == "" && req.To == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either tx_hash or to is required"})
		return
	}
	if req.TxHash != "" && !models.IsValidTxHash(req.TxHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction hash format"})
		return
	}
	if req.To != "" && !models.IsValidAddress(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to address format"})
		return
	}

	resp, err := h.services.AnalyzeTransaction(c.Request.Context(), CurrentUserID(c), req)
	if err != nil {
		log.Printf("Transaction analysis failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": analysisFailedMessage})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) handleAnalyzeContract(c *gin.Context) {
	var req models.AnalyzeContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	chain, ok := normalizeChain(req.Chain)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported chain"})
		return
	}
	req.Chain = chain

	if !models.IsValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address format"})
		return
	}

	resp, err := h.services.AnalyzeContract(c.Request.Context(), CurrentUserID(c), req)
	if err != nil {
		log.Printf("Contract analysis failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": analysisFailedMessage})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) handleGenerateReceipt(c *gin.Context) {
	var req models.GenerateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	chain, ok := normalizeChain(req.Chain)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported chain"})
		return
	}
	req.Chain = chain

	if !models.IsValidTxHash(req.TxHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction hash format"})
		return
	}

	c.JSON(http.StatusOK, h.services.GenerateReceipt(c.Request.Context(), CurrentUserID(c), req))
}

func (h *APIHandler) handleEmergencyRevoke(c *gin.Context) {
	var req models.EmergencyRevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	chain, ok := normalizeChain(req.Chain)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported chain"})
		return
	}
	req.Chain = chain

	if !models.IsValidAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address format"})
		return
	}
	if req.RiskThreshold != nil && (*req.RiskThreshold < 0 || *req.RiskThreshold > 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "risk_threshold must be between 0 and 100"})
		return
	}

	c.JSON(http.StatusOK, h.services.EmergencyRevoke(c.Request.Context(), CurrentUserID(c), req))
}

func (h *APIHandler) handleShieldStatus(c *gin.Context) {
	var req models.ShieldStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	chain, ok := normalizeChain(req.Chain)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported chain"})
		return
	}
	req.Chain = chain

	if !models.IsValidAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address format"})
		return
	}

	c.JSON(http.StatusOK, h.services.ShieldStatus(c.Request.Context(), CurrentUserID(c), req))
}

func (h *APIHandler) handleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	chain, ok := normalizeChain(req.Chain)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported chain"})
		return
	}
	req.Chain = chain

	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	c.JSON(http.StatusOK, h.services.Chat(c.Request.Context(), CurrentUserID(c), req))
}

// handleHistory returns the caller's recent shield events. Requires the
// database; without one the audit trail does not exist.
func (h *APIHandler) handleHistory(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event history is not available: no database configured"})
		return
	}

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = v
	}

	events, err := h.dbStore.RecentEvents(c.Request.Context(), CurrentUserID(c), limit)
	if err != nil {
		log.Printf("Event history query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// handleHealth returns engine status and capabilities for service discovery
func (h *APIHandler) handleHealth(c *gin.Context) {
	dbConnected := h.dbStore != nil

	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "Aya Shield Engine v1.0",
		"capabilities": gin.H{
			"transaction_analysis": true,
			"contract_analysis":    true,
			"approval_scanning":    true,
			"revoke_calldata":      true,
			"receipts":             true,
			"chat":                 true,
		},
		"dbConnected": dbConnected,
	})
}
