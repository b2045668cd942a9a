package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext drives a running console over HTTP and remembers the last
// response and the current session token between steps.
type TestContext struct {
	BaseURL string
	client  *http.Client
	// scenarios counts Reset calls so each scenario gets its own client address.
	scenarios int

	token        string
	clientIP     string
	lastStatus   int
	lastHeaders  http.Header
	lastBody     []byte
	lastDecoded  map[string]any
	lastDecodeOK bool
}

func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.scenarios++
	tc.token = ""
	tc.clientIP = fmt.Sprintf("198.51.100.%d", tc.scenarios%250+1)
	tc.lastStatus = 0
	tc.lastHeaders = nil
	tc.lastBody = nil
	tc.lastDecoded = nil
	tc.lastDecodeOK = false
}

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	if tc.clientIP != "" {
		req.Header.Set("X-Forwarded-For", tc.clientIP)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastDecoded = nil
	tc.lastDecodeOK = json.Unmarshal(tc.lastBody, &tc.lastDecoded) == nil
	return nil
}

// GetResponseField resolves a dotted path such as "claim.status" in the last
// JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if !tc.lastDecodeOK {
		return nil, fmt.Errorf("last response is not a JSON object: %s", tc.lastBody)
	}
	var current any = tc.lastDecoded
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in %s", field, tc.lastBody)
		}
	}
	return current, nil
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }

func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) GetLastResponseHeader(name string) string { return tc.lastHeaders.Get(name) }

func (tc *TestContext) GetToken() string { return tc.token }

func (tc *TestContext) SetToken(token string) { tc.token = token }

func (tc *TestContext) SetClientIP(ip string) { tc.clientIP = ip }
