package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gemini calls the generateContent endpoint. The API key is supplied per
// call so a single Gemini can serve the whole credential pool.
type Gemini struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewGemini creates a Gemini generator.
func NewGemini(opts ...Option) *Gemini {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Gemini{
		config: cfg,
		http:   cfg.HTTPClient,
		logger: cfg.Logger.With("component", "inference.gemini"),
	}
}

// Generate sends one user turn and returns the first candidate's text.
//
// Errors: *APIError for non-2xx status, ErrEmptyResponse for a 2xx body
// without text, ErrTransport (wrapping the cause) for network failures.
func (g *Gemini) Generate(ctx context.Context, key string, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	params := req.Params
	if params == (GenerationParams{}) {
		params = g.config.Params
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"text": req.Text},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     params.Temperature,
			"topK":            params.TopK,
			"topP":            params.TopP,
			"maxOutputTokens": params.MaxOutputTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("inference: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.config.BaseURL, "/"), g.config.Model, url.QueryEscape(key))

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("inference: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, stripKey(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, g.parseError(resp)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrEmptyResponse, err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 ||
		result.Candidates[0].Content.Parts[0].Text == "" {
		return nil, ErrEmptyResponse
	}

	return &GenerateResponse{
		Text:         result.Candidates[0].Content.Parts[0].Text,
		FinishReason: result.Candidates[0].FinishReason,
		Model:        g.config.Model,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// parseError reads and parses an error response.
func (g *Gemini) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Status = errResp.Error.Status
	}
	return apiErr
}

// stripKey removes the query string from *url.Error so keys never reach logs.
func stripKey(err error) error {
	if ue, ok := err.(*url.Error); ok {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
		}
	}
	return err
}

// geminiResponse is the generateContent response format.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Verify Gemini implements Generator at compile time.
var _ Generator = (*Gemini)(nil)
