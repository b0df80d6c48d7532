package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inconshreveable/log15/v3"
	"google.golang.org/genai"
)

const maxNoteLength = 400

const instructions = `You are helping a team lead read daily standup updates.
Reply with one or two short sentences: point out any risk or blocker in the update
and suggest a concrete next step. If the update looks healthy, say so briefly.
Do not repeat the update back.

Update:
`

var ErrEmptyAnalysis = errors.New("model returned no text")

type generateFunc func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)

// Gemini comments on standup replies with a Gemini model.
type Gemini struct {
	model    string
	generate generateFunc
	log      log15.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, log log15.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: failed to create client: %w", err)
	}
	return &Gemini{
		model: model,
		generate: func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
			return client.Models.GenerateContent(ctx, model, contents, nil)
		},
		log: log,
	}, nil
}

func (g *Gemini) Analyze(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyAnalysis
	}

	resp, err := g.generate(ctx, g.model, genai.Text(instructions+text))
	if err != nil {
		return "", fmt.Errorf("Analyze: generate content: %w", err)
	}

	note := responseText(resp)
	if note == "" {
		return "", ErrEmptyAnalysis
	}
	g.log.Debug("Standup reply analysed", "model", g.model, "chars", len(note))
	return truncate(note, maxNoteLength), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
