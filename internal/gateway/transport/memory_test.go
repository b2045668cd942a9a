package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insureadmin/internal/gateway"
	"insureadmin/pkg/platform/sentinel"
)

type doc struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func put(t *testing.T, m *Memory, path string, d doc, pre *gateway.Precondition) gateway.Response {
	t.Helper()
	body, err := json.Marshal(d)
	require.NoError(t, err)
	resp, err := m.Do(context.Background(), gateway.Request{Op: gateway.OpPut, Path: path, Body: body, Precondition: pre})
	require.NoError(t, err)
	return resp
}

func TestMemory_FetchCollectionPreservesInsertionOrder(t *testing.T) {
	m := NewMemory()
	put(t, m, "claims/b", doc{ID: "b"}, nil)
	put(t, m, "claims/a", doc{ID: "a"}, nil)
	put(t, m, "claims/b", doc{ID: "b", Note: "replaced"}, nil)

	resp, err := m.Do(context.Background(), gateway.Request{Op: gateway.OpFetch, Path: "claims"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	var got []doc
	require.NoError(t, json.Unmarshal(resp.Body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "replaced", got[0].Note)
	assert.Equal(t, "a", got[1].ID)
}

func TestMemory_EmptyCollectionIsEmptyArray(t *testing.T) {
	resp, err := NewMemory().Do(context.Background(), gateway.Request{Op: gateway.OpFetch, Path: "policies"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(resp.Body))
}

func TestMemory_Precondition(t *testing.T) {
	m := NewMemory()
	put(t, m, "claims/c1", doc{ID: "c1", Status: "Pending"}, nil)
	pending := &gateway.Precondition{Field: "status", Equals: "Pending"}

	first := put(t, m, "claims/c1", doc{ID: "c1", Status: "Approved"}, pending)
	assert.Equal(t, http.StatusOK, first.Status)

	second := put(t, m, "claims/c1", doc{ID: "c1", Status: "Rejected"}, pending)
	assert.Equal(t, http.StatusPreconditionFailed, second.Status)

	missing := put(t, m, "claims/nope", doc{ID: "nope", Status: "Approved"}, pending)
	assert.Equal(t, http.StatusPreconditionFailed, missing.Status)

	resp, err := m.Do(context.Background(), gateway.Request{Op: gateway.OpFetch, Path: "claims/c1"})
	require.NoError(t, err)
	var stored doc
	require.NoError(t, json.Unmarshal(resp.Body, &stored))
	assert.Equal(t, "Approved", stored.Status)
}

func TestMemory_PatchAndDelete(t *testing.T) {
	m := NewMemory()
	put(t, m, "claims/c1", doc{ID: "c1", Status: "Pending"}, nil)

	resp, err := m.Do(context.Background(), gateway.Request{Op: gateway.OpPatch, Path: "claims/c1", Body: []byte(`{"note":"checked"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","status":"Pending","note":"checked"}`, string(resp.Body))

	resp, err = m.Do(context.Background(), gateway.Request{Op: gateway.OpPatch, Path: "claims/zz", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp, err = m.Do(context.Background(), gateway.Request{Op: gateway.OpDelete, Path: "claims/c1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)

	resp, err = m.Do(context.Background(), gateway.Request{Op: gateway.OpFetch, Path: "claims/c1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestMemory_Offline(t *testing.T) {
	m := NewMemory()
	m.SetOffline(true)

	_, err := m.Do(context.Background(), gateway.Request{Op: gateway.OpFetch, Path: "policies"})
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Equal(t, 1, m.Calls())

	m.SetOffline(false)
	_, err = m.Do(context.Background(), gateway.Request{Op: gateway.OpFetch, Path: "policies"})
	assert.NoError(t, err)
}

func TestMemory_Invoke(t *testing.T) {
	m := NewMemory()
	m.Handle("auth/login", func(_ context.Context, body json.RawMessage) (gateway.Response, error) {
		return gateway.Response{Status: http.StatusOK, Body: body}, nil
	})

	resp, err := m.Do(context.Background(), gateway.Request{Op: gateway.OpInvoke, Path: "auth/login", Body: []byte(`{"ok":true}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	resp, err = m.Do(context.Background(), gateway.Request{Op: gateway.OpInvoke, Path: "auth/unknown"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
