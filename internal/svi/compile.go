// Package svi synthesizes composite vulnerability scores from a resolved
// area table. Raw variables are first compiled into named indicators, then
// two independent methods produce scores per area: an iterative factor
// analysis and a rank sum. A final orientation check reconciles the two.
package svi

import (
	"math"

	"svindex/internal/catalog"
	"svindex/internal/table"
)

// Reasons a compiled cell could not be computed.
const (
	IssueMissingInput    = "missing input"
	IssueUnresolvedInput = "unresolved input"
	IssueZeroDenominator = "zero denominator"
)

// CellIssue flags one compiled cell that had to be left as NaN instead of
// being silently forced to a number.
type CellIssue struct {
	GeoID     string
	Indicator string
	Reason    string
}

// CompileIndicators turns a resolved variable table into an indicator table:
// per area, each indicator's numerator codes are summed and divided by its
// summed denominator codes. Inverse indicators are sign-flipped so that
// higher always means more vulnerable. Any cell whose inputs are missing,
// still carry a negative sentinel, or divide by zero becomes NaN and is
// reported as an issue.
func CompileIndicators(resolved *table.Table, inds []catalog.Indicator) (*table.Table, []CellIssue) {
	out := table.New()
	for _, ind := range inds {
		out.AddColumn(ind.Name)
	}

	var issues []CellIssue
	for _, geoID := range resolved.Rows() {
		out.AddRow(geoID)
		for _, ind := range inds {
			v, reason := compileCell(resolved, geoID, ind)
			if reason != "" {
				issues = append(issues, CellIssue{GeoID: geoID, Indicator: ind.Name, Reason: reason})
				out.Set(geoID, ind.Name, math.NaN())
				continue
			}
			if ind.Inverse {
				v = -v
			}
			out.Set(geoID, ind.Name, v)
		}
	}
	return out, issues
}

func compileCell(resolved *table.Table, geoID string, ind catalog.Indicator) (float64, string) {
	num, reason := sumCodes(resolved, geoID, ind.Numerator)
	if reason != "" {
		return 0, reason
	}
	if !ind.Ratio() {
		return num, ""
	}
	den, reason := sumCodes(resolved, geoID, ind.Denominator)
	if reason != "" {
		return 0, reason
	}
	if den == 0 {
		return 0, IssueZeroDenominator
	}
	return num / den, ""
}

func sumCodes(resolved *table.Table, geoID string, codes []string) (float64, string) {
	var sum float64
	for _, code := range codes {
		v, ok := resolved.Get(geoID, code)
		if !ok || math.IsNaN(v) {
			return 0, IssueMissingInput
		}
		if v < 0 {
			return 0, IssueUnresolvedInput
		}
		sum += v
	}
	return sum, ""
}
