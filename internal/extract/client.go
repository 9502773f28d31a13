package extract

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/rmendes/finance-pro/internal/domain"
	"github.com/rmendes/finance-pro/internal/prompt"
)

const (
	// DefaultModel is the Gemini model used for extraction.
	DefaultModel = "gemini-3-pro-preview"

	// DefaultTemperature favors deterministic extraction over creative
	// variation; JSON structural fidelity degrades at higher temperatures.
	DefaultTemperature float32 = 0.2

	// BotTemperature is the slightly stricter setting the bot channels use.
	BotTemperature float32 = 0.1
)

// Input is one user utterance: either plain text or an audio payload with a
// declared MIME type. Audio is forwarded to the model as-is; transcription
// and extraction happen jointly on the model side.
type Input struct {
	Text     string
	Audio    []byte
	MIMEType string
}

// IsAudio reports whether the input carries an audio payload.
func (in Input) IsAudio() bool {
	return len(in.Audio) > 0
}

// Options is the immutable configuration of a Client. Temperature is a
// pointer so an explicit 0 stays distinguishable from unset.
type Options struct {
	Model             string
	Temperature       *float32
	SystemInstruction string
}

// Client sends user input plus the prompt contract and bounded history to the
// hosted model and returns its raw text response. The underlying genai client
// is injected once at construction and reused across turns; Client itself
// performs no retries and persists nothing.
type Client struct {
	model *genai.Client
	opts  Options
}

// NewClient wraps an existing genai client with fixed extraction options.
// Zero-value options fall back to the defaults.
func NewClient(model *genai.Client, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature == nil {
		opts.Temperature = genai.Ptr(DefaultTemperature)
	}
	if opts.SystemInstruction == "" {
		opts.SystemInstruction = prompt.SystemInstruction
	}
	return &Client{model: model, opts: opts}
}

// Generate performs the single blocking model call for one turn and returns
// the raw response text. History is serialized into the task payload, bounded
// to the most recent entries by the prompt builder.
func (c *Client) Generate(ctx context.Context, in Input, history []domain.Transaction) (string, error) {
	parts, err := c.buildParts(in, history)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: parts,
		},
	}

	config := &genai.GenerateContentConfig{
		Temperature: c.opts.Temperature,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: c.opts.SystemInstruction}},
		},
	}

	resp, err := c.model.Models.GenerateContent(ctx, c.opts.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("extract: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("extract: empty response from model")
	}
	return raw, nil
}

func (c *Client) buildParts(in Input, history []domain.Transaction) ([]*genai.Part, error) {
	if in.IsAudio() {
		return []*genai.Part{
			{
				InlineData: &genai.Blob{
					MIMEType: in.MIMEType,
					Data:     in.Audio,
				},
			},
			{Text: prompt.AudioTask},
		}, nil
	}

	userPrompt, err := prompt.BuildUserPrompt(history, in.Text)
	if err != nil {
		return nil, fmt.Errorf("extract: build prompt: %w", err)
	}
	return []*genai.Part{{Text: userPrompt}}, nil
}
