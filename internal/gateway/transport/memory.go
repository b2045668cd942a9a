package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"insureadmin/internal/gateway"
	"insureadmin/pkg/platform/sentinel"
)

// InvokeHandler answers an OpInvoke request on the memory transport.
type InvokeHandler func(ctx context.Context, body json.RawMessage) (gateway.Response, error)

// Memory is an in-process document store that speaks the Transport contract.
// It backs local development and tests; SetOffline simulates a network outage.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]map[string]json.RawMessage
	order    map[string][]string
	handlers map[string]InvokeHandler
	offline  bool
	calls    int
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]map[string]json.RawMessage),
		order:    make(map[string][]string),
		handlers: make(map[string]InvokeHandler),
	}
}

// SetOffline makes every subsequent call fail as unreachable until reset.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// Calls reports how many requests reached the transport.
func (m *Memory) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Handle registers an action for OpInvoke on path.
func (m *Memory) Handle(path string, h InvokeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = h
}

// Seed stores a document directly, bypassing preconditions.
func (m *Memory) Seed(collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode seed %s/%s: %w", collection, id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, raw)
	return nil
}

func (m *Memory) Do(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if err := ctx.Err(); err != nil {
		return gateway.Response{}, err
	}

	m.mu.Lock()
	m.calls++
	if m.offline {
		m.mu.Unlock()
		return gateway.Response{}, fmt.Errorf("memory transport offline: %w", sentinel.ErrUnavailable)
	}
	if req.Op == gateway.OpInvoke {
		h, ok := m.handlers[req.Path]
		m.mu.Unlock()
		if !ok {
			return status(http.StatusNotFound), nil
		}
		return h(ctx, req.Body)
	}
	defer m.mu.Unlock()

	collection, id := gateway.SplitPath(req.Path)
	switch req.Op {
	case gateway.OpFetch:
		if id == "" {
			return m.list(collection)
		}
		doc, ok := m.docs[collection][id]
		if !ok {
			return status(http.StatusNotFound), nil
		}
		return gateway.Response{Status: http.StatusOK, Body: doc}, nil

	case gateway.OpPut:
		if id == "" {
			return status(http.StatusBadRequest), nil
		}
		if req.Precondition != nil && !m.matches(collection, id, *req.Precondition) {
			return status(http.StatusPreconditionFailed), nil
		}
		m.put(collection, id, req.Body)
		return gateway.Response{Status: http.StatusOK, Body: req.Body}, nil

	case gateway.OpPatch:
		existing, ok := m.docs[collection][id]
		if !ok {
			return status(http.StatusNotFound), nil
		}
		if req.Precondition != nil && !m.matches(collection, id, *req.Precondition) {
			return status(http.StatusPreconditionFailed), nil
		}
		merged, err := mergeTopLevel(existing, req.Body)
		if err != nil {
			return status(http.StatusBadRequest), nil
		}
		m.put(collection, id, merged)
		return gateway.Response{Status: http.StatusOK, Body: merged}, nil

	case gateway.OpDelete:
		if _, ok := m.docs[collection][id]; !ok {
			return status(http.StatusNotFound), nil
		}
		delete(m.docs[collection], id)
		m.order[collection] = removeID(m.order[collection], id)
		return status(http.StatusNoContent), nil
	}
	return status(http.StatusMethodNotAllowed), nil
}

func (m *Memory) list(collection string) (gateway.Response, error) {
	items := make([]json.RawMessage, 0, len(m.order[collection]))
	for _, id := range m.order[collection] {
		items = append(items, m.docs[collection][id])
	}
	body, err := json.Marshal(items)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{Status: http.StatusOK, Body: body}, nil
}

func (m *Memory) put(collection, id string, doc json.RawMessage) {
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]json.RawMessage)
	}
	if _, exists := m.docs[collection][id]; !exists {
		m.order[collection] = append(m.order[collection], id)
	}
	m.docs[collection][id] = append(json.RawMessage(nil), doc...)
}

func (m *Memory) matches(collection, id string, p gateway.Precondition) bool {
	doc, ok := m.docs[collection][id]
	if !ok {
		return false
	}
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false
	}
	v, ok := fields[p.Field].(string)
	return ok && v == p.Equals
}

func mergeTopLevel(existing, patch json.RawMessage) (json.RawMessage, error) {
	var base, delta map[string]json.RawMessage
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patch, &delta); err != nil {
		return nil, err
	}
	for k, v := range delta {
		base[k] = v
	}
	return json.Marshal(base)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func status(code int) gateway.Response {
	return gateway.Response{Status: code}
}
