// Package inference sends single-turn text requests to the Gemini
// generateContent endpoint, rotating through a pool of API keys when a
// request fails.
//
// Requests are zero-history: the model sees a system prompt built from the
// catalog and the session's derived fields, followed by the current user
// message. Prior turns are never replayed.
//
// Example usage:
//
//	gen := inference.NewGemini(inference.WithTimeout(30 * time.Second))
//	d := inference.NewDispatcher(pool, gen, cat)
//
//	reply, err := d.Send(ctx, "هل لديكم كتاب B12؟", state.Snapshot())
//	if errors.Is(err, inference.ErrServiceBusy) {
//	    // every key was tried
//	}
package inference

import "context"

// Generator issues one completion request with a specific API key.
type Generator interface {
	Generate(ctx context.Context, key string, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerationParams are the sampling settings sent with every request.
type GenerationParams struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// DefaultParams returns the fixed parameters used by the text path.
func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature:     0.4,
		TopK:            20,
		TopP:            0.9,
		MaxOutputTokens: 512,
	}
}

// GenerateRequest is a single user-role turn.
type GenerateRequest struct {
	// Text is the full turn text: system prompt, separator and user message.
	Text string

	// Params are the sampling settings.
	Params GenerationParams
}

// GenerateResponse is the first candidate's first text part.
type GenerateResponse struct {
	Text         string
	FinishReason string
	Model        string
	LatencyMs    int64
}
