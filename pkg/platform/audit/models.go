package audit

import (
	"context"
	"time"

	id "insureadmin/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers decisions with regulatory significance
	// (claim adjudication, plan configuration). Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers session establishment and teardown.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as advisory lookups.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// ActorID is the operator who performed the action. Adjudication events
	// always carry it; it is the audit attribution for the decision.
	ActorID id.UserID
	// Subject identifies the entity acted on, e.g. "claim:CLM-1".
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	EventPolicySaved       AuditEvent = "policy_saved"
	EventClaimApproved     AuditEvent = "claim_approved"
	EventClaimRejected     AuditEvent = "claim_rejected"
	EventAdvisoryRequested AuditEvent = "advisory_requested"
	EventSessionStarted    AuditEvent = "session_started"
	EventSessionEnded      AuditEvent = "session_ended"
	EventSessionDiscarded  AuditEvent = "session_discarded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPolicySaved:       CategoryCompliance,
	EventClaimApproved:     CategoryCompliance,
	EventClaimRejected:     CategoryCompliance,
	EventSessionStarted:    CategorySecurity,
	EventSessionEnded:      CategorySecurity,
	EventSessionDiscarded:  CategorySecurity,
	EventAdvisoryRequested: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actorID id.UserID) ([]Event, error)
}
