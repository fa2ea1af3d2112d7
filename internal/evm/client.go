package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ayashield/shield-engine/pkg/models"
)

// Per-call deadlines. Primary RPC and log scans get the longer budget, the
// metadata fan-out the shorter one.
const (
	rpcTimeout      = 15 * time.Second
	metadataTimeout = 10 * time.Second
)

const defaultExplorerURL = "https://api.etherscan.io/api"

// approvalTopic is keccak256("Approval(address,address,uint256)").
var approvalTopic = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)")).Hex()

// Log-scan unlimited cutoff: amount > 2^255.
var logUnlimitedThreshold = new(big.Int).Lsh(big.NewInt(1), 255)

// Provider is the chain-evidence surface the analyzers consume. The client
// holds no per-request state; one instance is shared across requests.
type Provider interface {
	GetTransaction(ctx context.Context, txHash string) (*models.TransactionData, error)
	SimulateTransaction(ctx context.Context, to, data, value, from string) *models.SimulationResult
	GetContractMetadata(ctx context.Context, address string) (*models.ContractMetadata, error)
	GetReceipt(ctx context.Context, txHash string) (*models.TxReceipt, error)
	GetBlock(ctx context.Context, number uint64) (*models.Block, error)
	ScanApprovalLogs(ctx context.Context, owner string) ([]models.RawApproval, error)
}

type Config struct {
	RPCURL         string
	ExplorerURL    string
	ExplorerAPIKey string
	Chain          models.Chain
}

// Client speaks JSON-RPC to an EVM node and REST to the block explorer.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.ExplorerURL == "" {
		cfg.ExplorerURL = defaultExplorerURL
	}
	if cfg.Chain == "" {
		cfg.Chain = models.ChainEthereum
	}
	return &Client{cfg: cfg, http: &http.Client{}}
}

// --- JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) rpcCall(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, _ := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Op: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &NetworkError{Op: method, Err: err}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, &NetworkError{Op: method, Err: err}
	}
	if rpcResp.Error != nil {
		return nil, &RPCError{Op: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	return rpcResp.Result, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// parseQuantity decodes an RPC hex quantity, tolerating non-canonical
// encodings that some providers emit.
func parseQuantity(s string) uint64 {
	if s == "" {
		return 0
	}
	if v, err := hexutil.DecodeUint64(s); err == nil {
		return v
	}
	if b, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16); ok {
		return b.Uint64()
	}
	return 0
}

// parseBig decodes an arbitrary-precision hex quantity; zero on failure.
func parseBig(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	if v, err := hexutil.DecodeBig(s); err == nil {
		return v
	}
	if b, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16); ok {
		return b
	}
	return new(big.Int)
}

// --- RPC methods ---

// GetTransaction fetches and decodes a transaction by hash. A null RPC
// result means not found and returns (nil, nil).
func (c *Client) GetTransaction(ctx context.Context, txHash string) (*models.TransactionData, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	raw, err := c.rpcCall(ctx, "eth_getTransactionByHash", []any{txHash})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var tx struct {
		Hash        string  `json:"hash"`
		From        string  `json:"from"`
		To          *string `json:"to"`
		Value       string  `json:"value"`
		Input       string  `json:"input"`
		Gas         string  `json:"gas"`
		GasPrice    string  `json:"gasPrice"`
		Nonce       string  `json:"nonce"`
		BlockNumber *string `json:"blockNumber"`
	}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, &NetworkError{Op: "eth_getTransactionByHash", Err: err}
	}

	data := &models.TransactionData{
		Hash:     tx.Hash,
		From:     tx.From,
		Value:    parseBig(tx.Value).String(),
		Data:     tx.Input,
		Gas:      parseQuantity(tx.Gas),
		GasPrice: parseQuantity(tx.GasPrice),
		Nonce:    parseQuantity(tx.Nonce),
	}
	if data.Data == "" {
		data.Data = "0x"
	}
	if tx.To != nil {
		data.To = *tx.To
	}
	if tx.BlockNumber != nil {
		data.BlockNumber = parseQuantity(*tx.BlockNumber)
	}
	return data, nil
}

// SimulateTransaction runs eth_call followed by eth_estimateGas against the
// latest block. Success requires both to return without an RPC error; any
// failure yields a result carrying only the error string.
func (c *Client) SimulateTransaction(ctx context.Context, to, data, value, from string) *models.SimulationResult {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	callObj := map[string]string{"to": to, "data": data}
	if from != "" {
		callObj["from"] = from
	}
	if value != "" && value != "0" {
		if v, ok := new(big.Int).SetString(value, 10); ok && v.Sign() > 0 {
			callObj["value"] = hexutil.EncodeBig(v)
		}
	}

	ret, err := c.rpcCall(ctx, "eth_call", []any{callObj, "latest"})
	if err != nil {
		return &models.SimulationResult{Success: false, Error: err.Error()}
	}
	gasRaw, err := c.rpcCall(ctx, "eth_estimateGas", []any{callObj})
	if err != nil {
		return &models.SimulationResult{Success: false, Error: err.Error()}
	}

	var gasHex, retHex string
	_ = json.Unmarshal(gasRaw, &gasHex)
	_ = json.Unmarshal(ret, &retHex)
	return &models.SimulationResult{Success: true, GasUsed: parseQuantity(gasHex), ReturnData: retHex}
}

// GetContractMetadata fans out eth_getCode, eth_getBalance and
// eth_getTransactionCount concurrently, then enriches from the explorer when
// an API key is configured. Explorer failures are soft: the partial metadata
// is returned.
func (c *Client) GetContractMetadata(ctx context.Context, address string) (*models.ContractMetadata, error) {
	address = strings.ToLower(address)

	fanCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	var (
		wg                  sync.WaitGroup
		code, balance, nonc string
		firstErr            error
		mu                  sync.Mutex
	)
	fetch := func(method string, dst *string) {
		defer wg.Done()
		raw, err := c.rpcCall(fanCtx, method, []any{address, "latest"})
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		if !isNull(raw) {
			_ = json.Unmarshal(raw, dst)
		}
	}
	wg.Add(3)
	go fetch("eth_getCode", &code)
	go fetch("eth_getBalance", &balance)
	go fetch("eth_getTransactionCount", &nonc)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	meta := &models.ContractMetadata{
		Address:    address,
		HasCode:    code != "" && code != "0x" && code != "0x0",
		BalanceWei: parseBig(balance).String(),
		TxCount:    int(parseQuantity(nonc)),
		Bytecode:   code,
	}

	if c.cfg.ExplorerAPIKey != "" {
		c.enrichFromExplorer(ctx, meta)
	}
	return meta, nil
}

// GetReceipt fetches a transaction receipt; nil when not found.
func (c *Client) GetReceipt(ctx context.Context, txHash string) (*models.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	raw, err := c.rpcCall(ctx, "eth_getTransactionReceipt", []any{txHash})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var rec struct {
		GasUsed string `json:"gasUsed"`
		Status  string `json:"status"`
		Logs    []struct {
			Address string   `json:"address"`
			Topics  []string `json:"topics"`
			Data    string   `json:"data"`
		} `json:"logs"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &NetworkError{Op: "eth_getTransactionReceipt", Err: err}
	}

	out := &models.TxReceipt{GasUsed: parseQuantity(rec.GasUsed), Status: parseQuantity(rec.Status)}
	for _, l := range rec.Logs {
		out.Logs = append(out.Logs, models.LogEntry{Address: l.Address, Topics: l.Topics, Data: l.Data})
	}
	return out, nil
}

// GetBlock fetches a block header by number (without transactions).
func (c *Client) GetBlock(ctx context.Context, number uint64) (*models.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	raw, err := c.rpcCall(ctx, "eth_getBlockByNumber", []any{hexutil.EncodeUint64(number), false})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var blk struct {
		Number    string `json:"number"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &blk); err != nil {
		return nil, &NetworkError{Op: "eth_getBlockByNumber", Err: err}
	}
	return &models.Block{Number: parseQuantity(blk.Number), Timestamp: int64(parseQuantity(blk.Timestamp))}, nil
}

// --- Explorer REST ---

type explorerEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) explorerGet(ctx context.Context, params url.Values) (*explorerEnvelope, error) {
	params.Set("apikey", c.cfg.ExplorerAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ExplorerURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &NetworkError{Op: "explorer", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "explorer", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &NetworkError{Op: "explorer", Err: err}
	}
	var env explorerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &NetworkError{Op: "explorer", Err: err}
	}
	return &env, nil
}

func (c *Client) enrichFromExplorer(ctx context.Context, meta *models.ContractMetadata) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	// Source-code verification
	env, err := c.explorerGet(ctx, url.Values{
		"module":  {"contract"},
		"action":  {"getsourcecode"},
		"address": {meta.Address},
	})
	if err != nil {
		log.Printf("[explorer] source code check failed for %s: %v", meta.Address, err)
	} else if env.Status == "1" {
		var src []struct {
			ABI          string `json:"ABI"`
			ContractName string `json:"ContractName"`
			SourceCode   string `json:"SourceCode"`
		}
		if json.Unmarshal(env.Result, &src) == nil && len(src) > 0 {
			meta.IsVerified = src[0].ABI != "Contract source code not verified"
			meta.ContractName = src[0].ContractName
			meta.SourceCode = src[0].SourceCode
		}
	}

	// Contract age from the first transaction
	env, err = c.explorerGet(ctx, url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {meta.Address},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"page":       {"1"},
		"offset":     {"1"},
		"sort":       {"asc"},
	})
	if err != nil {
		log.Printf("[explorer] age check failed for %s: %v", meta.Address, err)
	} else if env.Status == "1" {
		var txs []struct {
			TimeStamp string `json:"timeStamp"`
		}
		if json.Unmarshal(env.Result, &txs) == nil && len(txs) > 0 {
			if first, ok := new(big.Int).SetString(txs[0].TimeStamp, 10); ok && first.Sign() > 0 {
				age := int((time.Now().Unix() - first.Int64()) / 86400)
				meta.AgeDays = &age
			}
		}
	}
}

// ScanApprovalLogs queries the explorer for ERC-20 Approval events where the
// wallet is the owner. Rows are deduplicated by (token, spender) keeping the
// first occurrence in log order; zero amounts (already revoked) are skipped
// before deduplication.
func (c *Client) ScanApprovalLogs(ctx context.Context, owner string) ([]models.RawApproval, error) {
	if c.cfg.ExplorerAPIKey == "" {
		return []models.RawApproval{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	padded := hexutil.Encode(common.LeftPadBytes(common.FromHex(strings.ToLower(owner)), 32))
	env, err := c.explorerGet(ctx, url.Values{
		"module":    {"logs"},
		"action":    {"getLogs"},
		"fromBlock": {"0"},
		"toBlock":   {"latest"},
		"topic0":    {approvalTopic},
		"topic1":    {padded},
	})
	if err != nil {
		return nil, err
	}
	if env.Status != "1" {
		return []models.RawApproval{}, nil
	}

	var logs []struct {
		Address string   `json:"address"`
		Topics  []string `json:"topics"`
		Data    string   `json:"data"`
	}
	if err := json.Unmarshal(env.Result, &logs); err != nil {
		return nil, &NetworkError{Op: "getLogs", Err: err}
	}

	seen := make(map[string]bool)
	approvals := []models.RawApproval{}
	for _, l := range logs {
		token := strings.ToLower(l.Address)
		spender := ""
		if len(l.Topics) > 2 && len(l.Topics[2]) >= 40 {
			spender = "0x" + strings.ToLower(l.Topics[2][len(l.Topics[2])-40:])
		}

		amount := new(big.Int)
		if data := strings.TrimPrefix(l.Data, "0x"); data != "" {
			if v, ok := new(big.Int).SetString(data, 16); ok {
				amount = v
			}
		}
		if amount.Sign() == 0 {
			continue // already revoked
		}

		key := token + ":" + spender
		if seen[key] {
			continue
		}
		seen[key] = true

		approvals = append(approvals, models.RawApproval{
			TokenAddress: token,
			Spender:      spender,
			Amount:       amount.String(),
			IsUnlimited:  amount.Cmp(logUnlimitedThreshold) > 0,
		})
	}
	return approvals, nil
}
