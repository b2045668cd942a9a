package advisory

import (
	"fmt"
	"strings"
)

const (
	claimSystemPrompt = "You assist health-insurance claim adjudicators. Comment on coding consistency, " +
		"billing plausibility and fraud indicators. You never approve or reject; the adjudicator decides."
	policySystemPrompt = "You answer questions about the insurer's plans using only the catalog provided. " +
		"If the catalog does not answer the question, say so."
)

// ClaimPrompt renders the user message for a claim analysis.
func ClaimPrompt(facts ClaimFacts, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim %s (status %s)\n", facts.ClaimID, facts.Status)
	if !facts.ServiceDate.IsZero() {
		fmt.Fprintf(&b, "Service date: %s\n", facts.ServiceDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Provider: %s\n", facts.ProviderName)
	fmt.Fprintf(&b, "Description: %s\n", facts.Description)
	fmt.Fprintf(&b, "Diagnosis (ICD-10): %s\n", facts.DiagnosisCode)
	fmt.Fprintf(&b, "Procedure: %s\n", facts.ProcedureCode)
	fmt.Fprintf(&b, "Amount billed: %.2f\n", facts.AmountBilled)
	if summary != "" {
		fmt.Fprintf(&b, "%s\n", summary)
	}
	return b.String()
}

// PolicyPrompt renders the user message for a policy question.
func PolicyPrompt(query, summary string) string {
	return "Catalog:\n" + summary + "\n\nQuestion: " + query
}
