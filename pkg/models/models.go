package models

import "regexp"

// Chain identifies the network a request targets. Only the EVM family is
// implemented; the enum mirrors the networks the frontend can select.
type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainPolygon   Chain = "polygon"
	ChainArbitrum  Chain = "arbitrum"
	ChainBase      Chain = "base"
	ChainOptimism  Chain = "optimism"
	ChainAvalanche Chain = "avalanche"
	ChainBSC       Chain = "bsc"
)

var validChains = map[Chain]bool{
	ChainEthereum: true, ChainPolygon: true, ChainArbitrum: true,
	ChainBase: true, ChainOptimism: true, ChainAvalanche: true, ChainBSC: true,
}

// IsValid reports whether the chain is a recognized network.
func (c Chain) IsValid() bool {
	return validChains[c]
}

var (
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	txHashPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// IsValidAddress reports whether s is a 20-byte hex address with 0x prefix.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// IsValidTxHash reports whether s is a 32-byte hex hash with 0x prefix.
func IsValidTxHash(s string) bool {
	return txHashPattern.MatchString(s)
}

// --- Request schemas ---

type AnalyzeTransactionRequest struct {
	TxHash string `json:"tx_hash,omitempty"`
	To     string `json:"to,omitempty"`
	Data   string `json:"data,omitempty"`
	Value  string `json:"value,omitempty"`
	Chain  Chain  `json:"chain"`
}

type AnalyzeContractRequest struct {
	Address string `json:"address"`
	Chain   Chain  `json:"chain"`
}

type GenerateReceiptRequest struct {
	TxHash string `json:"tx_hash"`
	Chain  Chain  `json:"chain"`
	Style  string `json:"style,omitempty"`
}

type EmergencyRevokeRequest struct {
	WalletAddress string `json:"wallet_address"`
	Chain         Chain  `json:"chain"`
	// Nil means the default threshold. An explicit 0 revokes every approval.
	RiskThreshold *int `json:"risk_threshold,omitempty"`
}

type ShieldStatusRequest struct {
	WalletAddress string `json:"wallet_address"`
	Chain         Chain  `json:"chain"`
}

type ChatRequest struct {
	Message string `json:"message"`
	Chain   Chain  `json:"chain"`
}

// --- Chain evidence (filled by the EVM provider) ---

// TransactionData is the decoded result of eth_getTransactionByHash.
// Value is a decimal string because wei amounts exceed 64 bits.
type TransactionData struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to,omitempty"` // empty for contract creation
	Value       string `json:"value"`
	Data        string `json:"data"`
	Gas         uint64 `json:"gas"`
	GasPrice    uint64 `json:"gasPrice"`
	Nonce       uint64 `json:"nonce"`
	BlockNumber uint64 `json:"blockNumber,omitempty"` // 0 while pending
}

type SimulationResult struct {
	Success    bool   `json:"success"`
	GasUsed    uint64 `json:"gas_used"`
	ReturnData string `json:"return_data,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ContractMetadata struct {
	Address      string `json:"address"`
	HasCode      bool   `json:"has_code"`
	BalanceWei   string `json:"balance_wei"`
	TxCount      int    `json:"tx_count"`
	IsVerified   bool   `json:"is_verified"`
	ContractName string `json:"contract_name,omitempty"`
	SourceCode   string `json:"-"`
	AgeDays      *int   `json:"age_days,omitempty"` // nil when the explorer gave no first-tx timestamp
	Bytecode     string `json:"-"`
}

type LogEntry struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

type TxReceipt struct {
	GasUsed uint64     `json:"gasUsed"`
	Status  uint64     `json:"status"`
	Logs    []LogEntry `json:"logs"`
}

type Block struct {
	Number    uint64 `json:"number"`
	Timestamp int64  `json:"timestamp"`
}

// RawApproval is one deduplicated ERC-20 Approval row from the log scan.
type RawApproval struct {
	TokenAddress string `json:"token_address"`
	Spender      string `json:"spender"`
	Amount       string `json:"amount"`
	IsUnlimited  bool   `json:"is_unlimited"`
}

// --- Analysis primitives ---

// BytecodeAnalysis is the result of the opcode walk.
type BytecodeAnalysis struct {
	HasSelfdestruct    bool     `json:"has_selfdestruct"`
	HasDelegatecall    bool     `json:"has_delegatecall"`
	SuspiciousPatterns []string `json:"suspicious_patterns"`
}

// Signals is the closed bag of inputs the scoring engine recognizes.
// The zero value is the identity: every contribution reads as absent.
type Signals struct {
	IsKnownScam        bool
	IsHoneypot         bool
	UnlimitedApproval  bool
	SetApprovalForAll  bool
	UnverifiedContract bool
	VerifiedContract   bool
	TrustedContract    bool
	HasSelfdestruct    bool
	HasDelegatecall    bool
	ContractAgeDays    *int // nil = age unknown, the age family contributes 0
	TxCount            int
	ValueUSD           float64
	FunctionRisk       string // "low"/"medium"/"high"
	UnknownFunction    bool
}

// RedFlag is a user-facing finding. Severity drives only the display band.
type RedFlag struct {
	Score    int    `json:"score"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type Warning struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// DecodedFunction describes the call a transaction's input data encodes.
type DecodedFunction struct {
	Name                string            `json:"name"`
	Type                string            `json:"type"`
	Risk                string            `json:"risk"`
	Description         string            `json:"description,omitempty"`
	Selector            string            `json:"selector,omitempty"`
	Params              map[string]string `json:"params,omitempty"`
	IsUnlimitedApproval bool              `json:"is_unlimited_approval"`
}

// --- Response schemas ---

type TransactionAnalysisResponse struct {
	RiskScore       int               `json:"risk_score"`
	RiskLevel       string            `json:"risk_level"`
	RiskColor       string            `json:"risk_color"`
	To              string            `json:"to,omitempty"` // resolved destination, lowercased
	FunctionName    string            `json:"function_name"`
	FunctionType    string            `json:"function_type"`
	DecodedParams   map[string]string `json:"decoded_params,omitempty"`
	Simulation      *SimulationResult `json:"simulation,omitempty"`
	Warnings        []Warning         `json:"warnings"`
	DestinationInfo map[string]any    `json:"destination_info,omitempty"`
	AIExplanation   string            `json:"ai_explanation"`
}

type ContractAnalysisResponse struct {
	TrustScore    int       `json:"trust_score"`
	TrustLevel    string    `json:"trust_level"`
	TrustColor    string    `json:"trust_color"`
	Address       string    `json:"address"`
	Chain         string    `json:"chain"`
	ContractName  string    `json:"contract_name,omitempty"`
	ContractType  string    `json:"contract_type,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	IsKnownScam   bool      `json:"is_known_scam"`
	AgeDays       *int      `json:"age_days,omitempty"`
	TxCount       *int      `json:"tx_count,omitempty"`
	RedFlags      []RedFlag `json:"red_flags"`
	AIExplanation string    `json:"ai_explanation"`
}

type CostBreakdown struct {
	GasETH   string `json:"gas_eth"`
	GasUSD   string `json:"gas_usd"`
	ValueETH string `json:"value_eth"`
	ValueUSD string `json:"value_usd"`
	TotalETH string `json:"total_eth"`
	TotalUSD string `json:"total_usd"`
}

type ReceiptEvent struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

type ReceiptResponse struct {
	TxHash        string         `json:"tx_hash"`
	Chain         string         `json:"chain"`
	ActionSummary string         `json:"action_summary"`
	Events        []ReceiptEvent `json:"events"`
	CostBreakdown *CostBreakdown `json:"cost_breakdown,omitempty"`
	SVGCard       string         `json:"svg_card"`
	AISummary     string         `json:"ai_summary"`
}

type Approval struct {
	TokenAddress string `json:"token_address"`
	TokenName    string `json:"token_name"`
	Spender      string `json:"spender"`
	SpenderName  string `json:"spender_name,omitempty"`
	Amount       string `json:"amount"`
	IsUnlimited  bool   `json:"is_unlimited"`
	RiskScore    int    `json:"risk_score"`
}

type RevokeTransaction struct {
	To          string `json:"to"`
	Data        string `json:"data"`
	Description string `json:"description"`
}

type EmergencyRevokeResponse struct {
	TotalApprovals int                 `json:"total_approvals"`
	RiskyApprovals int                 `json:"risky_approvals"`
	TotalAtRiskUSD string              `json:"total_at_risk_usd"`
	Approvals      []Approval          `json:"approvals"`
	RevokeTxs      []RevokeTransaction `json:"revoke_txs"`
	AIExplanation  string              `json:"ai_explanation"`
}

type ShieldStatusResponse struct {
	Score          int    `json:"score"`
	Level          string `json:"level"`
	TotalApprovals int    `json:"total_approvals"`
	RiskyApprovals int    `json:"risky_approvals"`
	EventsLast30d  int    `json:"events_last_30d"`
	BlockedThreats int    `json:"blocked_threats"`
}

type ChatResponse struct {
	Intent  string `json:"intent"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Intent is the LLM collaborator's classification of a chat message.
type Intent struct {
	Category   string            `json:"category"`
	Confidence float64           `json:"confidence"`
	Parameters map[string]string `json:"parameters"`
	Reasoning  string            `json:"reasoning,omitempty"`
}
