package receipt

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ayashield/shield-engine/internal/evm"
	"github.com/ayashield/shield-engine/internal/registry"
	"github.com/ayashield/shield-engine/pkg/models"
)

// Generator turns a confirmed transaction into a shareable receipt: decoded
// events, a plain-English action summary, a cost breakdown at the configured
// spot price, and an SVG card.
type Generator struct {
	provider    evm.Provider
	ethPriceUSD float64
}

func NewGenerator(provider evm.Provider, ethPriceUSD float64) *Generator {
	return &Generator{provider: provider, ethPriceUSD: ethPriceUSD}
}

// Generate builds the receipt. Chain fetch failures degrade to a mock
// receipt rather than failing the call.
func (g *Generator) Generate(ctx context.Context, txHash string, chain models.Chain, style string) *models.ReceiptResponse {
	tx, err := g.provider.GetTransaction(ctx, txHash)
	if err != nil || tx == nil {
		log.Printf("[receipt] transaction fetch failed for %s: %v", txHash, err)
		return g.mockReceipt(txHash, chain, style)
	}

	rcpt, err := g.provider.GetReceipt(ctx, txHash)
	if err != nil || rcpt == nil {
		log.Printf("[receipt] receipt fetch failed for %s: %v", txHash, err)
		return g.mockReceipt(txHash, chain, style)
	}

	var blockTime int64
	if tx.BlockNumber > 0 {
		if block, err := g.provider.GetBlock(ctx, tx.BlockNumber); err == nil && block != nil {
			blockTime = block.Timestamp
		}
	}
	if blockTime == 0 {
		blockTime = time.Now().Unix()
	}

	events := decodeEvents(rcpt.Logs)
	summary := actionSummary(tx, events)
	cost := g.costBreakdown(tx, rcpt)

	resp := &models.ReceiptResponse{
		TxHash:        txHash,
		Chain:         string(chain),
		ActionSummary: summary,
		Events:        events,
		CostBreakdown: cost,
	}
	resp.SVGCard = renderCard(cardData{
		Summary:   summary,
		TxHash:    txHash,
		Chain:     string(chain),
		TotalETH:  cost.TotalETH,
		TotalUSD:  cost.TotalUSD,
		Timestamp: time.Unix(blockTime, 0).UTC().Format("Jan 2, 2006 15:04 UTC"),
		Success:   rcpt.Status == 1,
		Style:     style,
	})
	return resp
}

// decodeEvents names each log via the topic0 registry. Unknown topics
// degrade to "Unknown Event".
func decodeEvents(logs []models.LogEntry) []models.ReceiptEvent {
	events := make([]models.ReceiptEvent, 0, len(logs))
	for _, entry := range logs {
		name := "Unknown Event"
		if len(entry.Topics) > 0 {
			if sig, ok := registry.LookupEvent(entry.Topics[0]); ok {
				name = sig.Name
			}
		}
		events = append(events, models.ReceiptEvent{
			Name:    name,
			Address: strings.ToLower(entry.Address),
			Topics:  entry.Topics,
			Data:    entry.Data,
		})
	}
	return events
}

// actionSummary classifies the transaction from its decoded events. The
// first matching rule wins.
func actionSummary(tx *models.TransactionData, events []models.ReceiptEvent) string {
	transfers := 0
	hasSwap := false
	hasApproval := false
	for _, ev := range events {
		switch ev.Name {
		case "Transfer":
			transfers++
		case "Swap":
			hasSwap = true
		case "Approval", "ApprovalForAll":
			hasApproval = true
		}
	}

	switch {
	case hasSwap && transfers >= 2:
		return "Token Swap"
	case hasApproval:
		return "Token Approval"
	case transfers == 1:
		return "Token Transfer"
	case transfers > 1:
		return fmt.Sprintf("Multi-Transfer (%d transfers)", transfers)
	}

	if wei, ok := new(big.Int).SetString(tx.Value, 10); ok && wei.Sign() > 0 {
		return fmt.Sprintf("ETH Transfer (%s ETH)", weiToETH(wei).Text('f', 4))
	}
	return "Contract Interaction"
}

func (g *Generator) costBreakdown(tx *models.TransactionData, rcpt *models.TxReceipt) *models.CostBreakdown {
	gasWei := new(big.Int).Mul(
		new(big.Int).SetUint64(rcpt.GasUsed),
		new(big.Int).SetUint64(tx.GasPrice),
	)
	valueWei, ok := new(big.Int).SetString(tx.Value, 10)
	if !ok {
		valueWei = big.NewInt(0)
	}

	gasETH := weiToETH(gasWei)
	valueETH := weiToETH(valueWei)
	totalETH := new(big.Float).Add(gasETH, valueETH)

	price := big.NewFloat(g.ethPriceUSD)
	return &models.CostBreakdown{
		GasETH:   fmt.Sprintf("%s ETH", gasETH.Text('f', 6)),
		GasUSD:   fmt.Sprintf("$%s", new(big.Float).Mul(gasETH, price).Text('f', 2)),
		ValueETH: fmt.Sprintf("%s ETH", valueETH.Text('f', 6)),
		ValueUSD: fmt.Sprintf("$%s", new(big.Float).Mul(valueETH, price).Text('f', 2)),
		TotalETH: fmt.Sprintf("%s ETH", totalETH.Text('f', 6)),
		TotalUSD: fmt.Sprintf("$%s", new(big.Float).Mul(totalETH, price).Text('f', 2)),
	}
}

// mockReceipt keeps the endpoint useful when the chain is unreachable.
func (g *Generator) mockReceipt(txHash string, chain models.Chain, style string) *models.ReceiptResponse {
	cost := &models.CostBreakdown{
		GasETH: "0.000000 ETH", GasUSD: "$0.00",
		ValueETH: "0.000000 ETH", ValueUSD: "$0.00",
		TotalETH: "0.000000 ETH", TotalUSD: "$0.00",
	}
	summary := "Transaction (details unavailable)"
	return &models.ReceiptResponse{
		TxHash:        txHash,
		Chain:         string(chain),
		ActionSummary: summary,
		Events:        []models.ReceiptEvent{},
		CostBreakdown: cost,
		SVGCard: renderCard(cardData{
			Summary:   summary,
			TxHash:    txHash,
			Chain:     string(chain),
			TotalETH:  cost.TotalETH,
			TotalUSD:  cost.TotalUSD,
			Timestamp: time.Now().UTC().Format("Jan 2, 2006 15:04 UTC"),
			Success:   true,
			Style:     style,
		}),
	}
}

func weiToETH(wei *big.Int) *big.Float {
	return new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
}
