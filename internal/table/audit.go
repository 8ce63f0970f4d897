package table

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/google/uuid"
)

// Method names how a hole was resolved.
type Method string

const (
	MethodInterpolated      Method = "Interpolated"
	MethodTractFilled       Method = "Tract Filled"
	MethodCountyFilled      Method = "County Filled"
	MethodEmptyColumnFilled Method = "Empty Column Filled"
	MethodUnresolved        Method = "Unresolved"
)

// AuditEntry records one non-trivial fill (or failure to fill).
type AuditEntry struct {
	GeoID    string
	Variable string
	Method   Method
}

// Audit collects the resolution trail for a single pipeline run.
type Audit struct {
	RunID   uuid.UUID
	Started time.Time
	Entries []AuditEntry
}

// NewAudit creates an audit log with a fresh run identifier.
func NewAudit() *Audit {
	return &Audit{RunID: uuid.New(), Started: time.Now()}
}

// Record appends one entry.
func (a *Audit) Record(geoID, variable string, method Method) {
	a.Entries = append(a.Entries, AuditEntry{GeoID: geoID, Variable: variable, Method: method})
}

// Unresolved returns the entries for holes no fallback level could repair.
func (a *Audit) Unresolved() []AuditEntry {
	var out []AuditEntry
	for _, e := range a.Entries {
		if e.Method == MethodUnresolved {
			out = append(out, e)
		}
	}
	return out
}

// WriteCSV dumps the audit trail as (geoid, variable, method) rows.
func (a *Audit) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"geoid", "variable", "method"}); err != nil {
		return err
	}
	for _, e := range a.Entries {
		if err := cw.Write([]string{e.GeoID, e.Variable, string(e.Method)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
