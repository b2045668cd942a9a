// Package advisory talks to the text-generation backend that comments on
// claims and answers policy questions. Its output is never authoritative.
package advisory

import (
	"context"
	"time"
)

// ClaimFacts is the clinical and financial slice of a claim sent for analysis.
type ClaimFacts struct {
	ClaimID       string
	Status        string
	ServiceDate   time.Time
	Description   string
	DiagnosisCode string
	ProcedureCode string
	AmountBilled  float64
	ProviderName  string
}

// Client is an advisory backend. Implementations return errors freely; the
// Gateway converts them to fallback text.
type Client interface {
	AnalyzeClaim(ctx context.Context, facts ClaimFacts, summary string) (string, error)
	PolicyAdvisor(ctx context.Context, query string, summary string) (string, error)
}
