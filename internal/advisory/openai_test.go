package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, content string, inspect func(openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if inspect != nil {
			inspect(req)
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			}},
		})
	}))
}

func TestOpenAIClient_AnalyzeClaim(t *testing.T) {
	var sent openai.ChatCompletionRequest
	server := chatServer(t, "  Low risk.  ", func(r openai.ChatCompletionRequest) { sent = r })
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini", Timeout: 5 * time.Second})
	require.NoError(t, err)

	text, err := client.AnalyzeClaim(context.Background(), ClaimFacts{
		ClaimID:       "CLM-9",
		DiagnosisCode: "K02.9",
		ProcedureCode: "D2391",
		AmountBilled:  250,
	}, "Member status: active, age: 34")
	require.NoError(t, err)

	assert.Equal(t, "Low risk.", text)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, sent.Messages[0].Role)
	assert.True(t, strings.Contains(sent.Messages[1].Content, "K02.9"))
	assert.True(t, strings.Contains(sent.Messages[1].Content, "Member status: active, age: 34"))
}

func TestOpenAIClient_EmptyContentIsError(t *testing.T) {
	server := chatServer(t, "   ", nil)
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.PolicyAdvisor(context.Background(), "Is optical covered?", "Gold: Optical $500")
	assert.Error(t, err)
}

func TestOpenAIClient_ServerErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.PolicyAdvisor(context.Background(), "q", "")
	assert.Error(t, err)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	assert.Error(t, err)
}

func TestPolicyPrompt(t *testing.T) {
	p := PolicyPrompt("Does Silver cover maternity?", "Silver Saver (USD, Silver): Maternity $2,000")
	assert.Contains(t, p, "Silver Saver")
	assert.Contains(t, p, "Question: Does Silver cover maternity?")
}
