package main

import (
	"log"
	"os"
	"strconv"

	"github.com/ayashield/shield-engine/internal/ai"
	"github.com/ayashield/shield-engine/internal/analyzer"
	"github.com/ayashield/shield-engine/internal/api"
	"github.com/ayashield/shield-engine/internal/db"
	"github.com/ayashield/shield-engine/internal/evm"
	"github.com/ayashield/shield-engine/internal/receipt"
	"github.com/ayashield/shield-engine/internal/revoke"
	"github.com/ayashield/shield-engine/internal/shield"
)

func main() {
	log.Println("Starting Aya Shield Engine (Microservice: evm-tx-security-gateway)...")
	log.Println("Loading selector registry and known-contract tables...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. Use a .env file for local
	// development: cp .env.example .env && edit .env
	// ────────────────────────────────────────────────────────────────────

	rpcURL := requireEnv("ETH_RPC_URL")

	provider := evm.NewClient(evm.Config{
		RPCURL:         rpcURL,
		ExplorerURL:    os.Getenv("EXPLORER_API_URL"),
		ExplorerAPIKey: os.Getenv("EXPLORER_API_KEY"),
	})
	if os.Getenv("EXPLORER_API_KEY") == "" {
		log.Println("Warning: EXPLORER_API_KEY not set. Verification status, contract age and approval scans will be unavailable.")
	}

	intelligence := ai.NewGeminiClient(os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"))
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Println("Warning: GEMINI_API_KEY not set. Chat will use regex routing and explanations will use static fallbacks.")
	}

	ethPrice := ethPriceUSD()

	var store *db.PostgresStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		conn, err := db.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without the shield event log. Error: %v", err)
		} else {
			defer conn.Close()
			if err := conn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
			store = conn
		}
	} else {
		log.Println("Warning: DATABASE_URL not set. Shield events will not be persisted.")
	}

	// Setup WebSocket Hub
	wsHub := api.NewHub()
	go wsHub.Run()

	services := &shield.Services{
		Transactions: analyzer.NewTransactionAnalyzer(provider),
		Contracts:    analyzer.NewContractAnalyzer(provider),
		Revoker:      revoke.NewScanner(provider),
		Receipts:     receipt.NewGenerator(provider, ethPrice),
		Intelligence: intelligence,
		Alerts:       wsHub,
	}
	if store != nil {
		services.Events = store
	}

	// Setup the Gin Router
	r := api.SetupRouter(services, store, wsHub)

	port := getEnvOrDefault("PORT", "5340")

	// Start the server
	log.Printf("Engine running on :%s (API Node: evm-tx-security-gateway)\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ethPriceUSD reads the configured ETH spot price. The 3500 fallback is a
// development convenience only; release mode requires an explicit value.
func ethPriceUSD() float64 {
	raw := os.Getenv("ETH_PRICE_USD")
	if raw == "" {
		if os.Getenv("GIN_MODE") == "release" {
			log.Fatalf("FATAL: ETH_PRICE_USD is required in release mode. " +
				"Set it to the current ETH spot price; receipts quote USD from it.")
		}
		return 3500
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		log.Fatalf("FATAL: ETH_PRICE_USD must be a positive number, got %q", raw)
	}
	return price
}

// requireEnv reads a required environment variable and exits if it is not set.
// This prevents the binary from starting with missing critical configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
