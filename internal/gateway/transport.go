package gateway

import (
	"context"
	"encoding/json"
	"strings"
)

// Op names the backend operation a Request performs.
type Op string

const (
	OpFetch  Op = "fetch"
	OpPut    Op = "put"
	OpPatch  Op = "patch"
	OpDelete Op = "delete"
	// OpInvoke posts an action such as auth/login and returns its response.
	OpInvoke Op = "invoke"
)

// Precondition is a compare-and-swap guard on a write: the stored document's
// Field must currently equal Equals or the write is refused.
type Precondition struct {
	Field  string
	Equals string
}

func (p Precondition) String() string {
	return p.Field + "=" + p.Equals
}

// Request is a single logical call against the backend. Path is a logical
// resource path such as "policies" or "claims/CLM-1".
type Request struct {
	Op           Op
	Path         string
	Body         json.RawMessage
	Precondition *Precondition
}

// Response carries an HTTP-style status and the raw JSON body. Transports
// that are not HTTP map their outcomes onto the same statuses.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Transport performs requests. It returns an error only when the backend could
// not be reached; backend refusals are reported through Response.Status.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// SplitPath separates a logical path into its collection and optional id.
func SplitPath(path string) (collection, id string) {
	path = strings.Trim(path, "/")
	collection, id, _ = strings.Cut(path, "/")
	return collection, id
}
