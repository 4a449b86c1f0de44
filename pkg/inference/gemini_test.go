package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-librarian/pkg/credential"
	"github.com/teslashibe/go-librarian/pkg/session"
)

type capturedRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopK            int     `json:"topK"`
		TopP            float64 `json:"topP"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func replyJSON(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}]},"finishReason":"STOP"}]}`
}

func TestGeminiGenerate(t *testing.T) {
	var got capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(replyJSON("✅ متوفر")))
	}))
	defer server.Close()

	g := NewGemini(WithBaseURL(server.URL), WithLogger(quietLogger()))
	resp, err := g.Generate(context.Background(), "test-key", &GenerateRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "✅ متوفر", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "hello", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.4, got.GenerationConfig.Temperature)
	assert.Equal(t, 20, got.GenerationConfig.TopK)
	assert.Equal(t, 0.9, got.GenerationConfig.TopP)
	assert.Equal(t, 512, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", 429, `{"error":{"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`, ErrQuotaExceeded},
		{"forbidden", 403, `{"error":{"message":"API key not valid"}}`, ErrAuthRejected},
		{"payment", 402, ``, ErrAuthRejected},
		{"server", 500, `oops`, ErrServerError},
		{"no candidates", 200, `{"candidates":[]}`, ErrEmptyResponse},
		{"empty text", 200, replyJSON(""), ErrEmptyResponse},
		{"malformed", 200, `{not json`, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			g := NewGemini(WithBaseURL(server.URL), WithLogger(quietLogger()))
			_, err := g.Generate(context.Background(), "k", &GenerateRequest{Text: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeminiAPIErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		w.Write([]byte(`{"error":{"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	g := NewGemini(WithBaseURL(server.URL))
	_, err := g.Generate(context.Background(), "k", &GenerateRequest{Text: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
	assert.Equal(t, "Resource exhausted", apiErr.Message)
	assert.Equal(t, "RESOURCE_EXHAUSTED", apiErr.Status)
}

func TestGeminiTransportErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	g := NewGemini(WithBaseURL(url), WithTimeout(time.Second))
	_, err := g.Generate(context.Background(), "super-secret-key", &GenerateRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotContains(t, err.Error(), "super-secret-key")
	assert.Equal(t, FailureTransport, Classify(err))
}

func TestDispatcherWithGemini(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("key") {
		case "exhausted":
			w.WriteHeader(429)
			w.Write([]byte(`{"error":{"message":"quota"}}`))
		default:
			w.Write([]byte(replyJSON("B12 متوفر")))
		}
	}))
	defer server.Close()

	g := NewGemini(WithBaseURL(server.URL), WithLogger(quietLogger()))
	d := NewDispatcher(credential.New("exhausted", "fresh"), g, testCatalog(t), WithLogger(quietLogger()))

	reply, err := d.Send(context.Background(), "B12?", *session.New())
	require.NoError(t, err)
	assert.Equal(t, "B12 متوفر", reply)
}
