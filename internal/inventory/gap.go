// Package inventory computes inventory gaps and manages requirements and
// their groups.
package inventory

import "github.com/shopspring/decimal"

// Severity ranks how urgently a requirement needs attention.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityMissing  Severity = "missing"
	SeverityCritical Severity = "critical"
)

// GapResult is the shortfall of one requirement.
type GapResult struct {
	Missing   decimal.Decimal
	IsMissing bool
	Critical  bool
}

// Severity returns critical for a missing critical item, missing for any
// other shortfall, and ok otherwise.
func (g GapResult) Severity() Severity {
	switch {
	case g.IsMissing && g.Critical:
		return SeverityCritical
	case g.IsMissing:
		return SeverityMissing
	default:
		return SeverityOK
	}
}

// Gap computes max(0, required - current). A negative current quantity is
// treated as zero.
func Gap(required int, current decimal.Decimal, critical bool) GapResult {
	if current.IsNegative() {
		current = decimal.Zero
	}
	req := decimal.NewFromInt(int64(max(required, 0)))
	missing := req.Sub(current)
	if !missing.IsPositive() {
		missing = decimal.Zero
	}
	return GapResult{
		Missing:   missing,
		IsMissing: missing.IsPositive(),
		Critical:  critical,
	}
}

// MissingCount sums the shortfall across gaps.
func MissingCount(gaps []GapResult) decimal.Decimal {
	total := decimal.Zero
	for _, g := range gaps {
		total = total.Add(g.Missing)
	}
	return total
}

// CriticalMissing counts gaps in the critical severity.
func CriticalMissing(gaps []GapResult) int {
	n := 0
	for _, g := range gaps {
		if g.Severity() == SeverityCritical {
			n++
		}
	}
	return n
}
