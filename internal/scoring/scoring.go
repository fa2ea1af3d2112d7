package scoring

import (
	"sort"

	"github.com/ayashield/shield-engine/pkg/models"
)

// Additive signal-based scoring. Both scores are pure functions of the
// signals bag: no I/O, no state, identical input always yields the identical
// verdict. Scores are clamped to [0, 100] on the way out.

// CalculateRisk composites the risk score (higher = more dangerous).
func CalculateRisk(s models.Signals) int {
	score := 0

	// Critical signals
	if s.IsKnownScam {
		score += 80
	}
	if s.IsHoneypot {
		score += 70
	}
	if s.UnlimitedApproval {
		score += 30
	}
	if s.SetApprovalForAll {
		score += 25
	}

	// Contract signals
	if s.UnverifiedContract {
		score += 20
	}
	if s.HasSelfdestruct {
		score += 20
	}
	if s.HasDelegatecall {
		score += 15
	}

	// Age bands are mutually exclusive, lowest match only. nil age = no
	// contribution.
	if s.ContractAgeDays != nil {
		switch age := *s.ContractAgeDays; {
		case age < 1:
			score += 20
		case age < 7:
			score += 10
		case age < 30:
			score += 5
		}
	}

	// Activity bands
	switch {
	case s.TxCount < 10:
		score += 15
	case s.TxCount < 100:
		score += 8
	}

	// Value bands
	switch {
	case s.ValueUSD > 50_000:
		score += 10
	case s.ValueUSD > 10_000:
		score += 5
	}

	// Function risk
	switch s.FunctionRisk {
	case "high":
		score += 15
	case "medium":
		score += 5
	}

	// Trust discounts
	if s.TrustedContract {
		score -= 40
	}
	if s.VerifiedContract {
		score -= 10
	}
	if s.TxCount > 10_000 {
		score -= 5
	}

	return clamp(score)
}

// CalculateTrust composites the trust score (higher = more trustworthy).
func CalculateTrust(s models.Signals) int {
	score := 50

	if s.TrustedContract {
		score += 40
	}
	if s.VerifiedContract {
		score += 15
	}

	if s.ContractAgeDays != nil {
		switch age := *s.ContractAgeDays; {
		case age > 365:
			score += 10
		case age < 7:
			score -= 25
		case age < 30:
			score -= 10
		}
	}

	switch {
	case s.TxCount > 10_000:
		score += 10
	case s.TxCount < 10:
		score -= 20
	}

	if s.IsKnownScam {
		score -= 90
	}
	if s.UnverifiedContract {
		score -= 20
	}
	if s.HasSelfdestruct {
		score -= 15
	}

	return clamp(score)
}

// RiskLevel maps a risk score to its display band.
func RiskLevel(score int) string {
	switch {
	case score <= 20:
		return "low"
	case score <= 50:
		return "medium"
	case score <= 75:
		return "high"
	default:
		return "critical"
	}
}

// TrustLevel maps a trust score to its display band.
func TrustLevel(score int) string {
	switch {
	case score >= 80:
		return "highly_trusted"
	case score >= 60:
		return "trusted"
	case score >= 40:
		return "caution"
	case score >= 20:
		return "suspicious"
	default:
		return "dangerous"
	}
}

// RiskColor returns the hex color for a risk score, same thresholds as the
// level bands.
func RiskColor(score int) string {
	switch {
	case score <= 20:
		return "#10B981"
	case score <= 50:
		return "#F59E0B"
	case score <= 75:
		return "#EF4444"
	default:
		return "#991B1B"
	}
}

// TrustColor returns the hex color for a trust score.
func TrustColor(score int) string {
	switch {
	case score >= 80:
		return "#10B981"
	case score >= 60:
		return "#34D399"
	case score >= 40:
		return "#F59E0B"
	case score >= 20:
		return "#EF4444"
	default:
		return "#991B1B"
	}
}

// Red-flag catalogue. Severity drives only the display band; it never feeds
// back into scoring.
var redFlagCatalogue = map[string]models.RedFlag{
	"known_scam":           {Score: 90, Severity: "critical", Message: "Address is on known scam/phishing list"},
	"unlimited_approval":   {Score: 30, Severity: "high", Message: "Requesting unlimited token spending approval"},
	"set_approval_for_all": {Score: 25, Severity: "high", Message: "Requesting approval for entire NFT collection"},
	"unverified_contract":  {Score: 20, Severity: "medium", Message: "Contract source code is not verified"},
	"new_contract":         {Score: 15, Severity: "medium", Message: "Contract deployed less than 7 days ago"},
	"very_new_contract":    {Score: 20, Severity: "high", Message: "Contract deployed less than 24 hours ago"},
	"low_activity":         {Score: 15, Severity: "medium", Message: "Very few transactions with this contract"},
	"selfdestruct":         {Score: 20, Severity: "high", Message: "Contract contains self-destruct capability"},
	"delegatecall":         {Score: 15, Severity: "medium", Message: "Contract uses delegatecall (upgradeable/proxy)"},
	"high_value":           {Score: 10, Severity: "medium", Message: "High-value transaction"},
	"unknown_function":     {Score: 10, Severity: "low", Message: "Unknown function being called"},
}

// RedFlags maps signals to the ordered user-facing findings list, descending
// by score (stable). For the age family only the single worst applicable
// flag is emitted.
func RedFlags(s models.Signals) []models.RedFlag {
	flags := []models.RedFlag{}

	appendIf := func(cond bool, key string) {
		if cond {
			flags = append(flags, redFlagCatalogue[key])
		}
	}

	appendIf(s.IsKnownScam, "known_scam")
	appendIf(s.UnlimitedApproval, "unlimited_approval")
	appendIf(s.SetApprovalForAll, "set_approval_for_all")
	appendIf(s.UnverifiedContract, "unverified_contract")
	appendIf(s.HasSelfdestruct, "selfdestruct")
	appendIf(s.HasDelegatecall, "delegatecall")
	appendIf(s.UnknownFunction, "unknown_function")

	if s.ContractAgeDays != nil {
		if *s.ContractAgeDays < 1 {
			flags = append(flags, redFlagCatalogue["very_new_contract"])
		} else if *s.ContractAgeDays < 7 {
			flags = append(flags, redFlagCatalogue["new_contract"])
		}
	}

	appendIf(s.TxCount < 10, "low_activity")

	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].Score > flags[j].Score
	})
	return flags
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
