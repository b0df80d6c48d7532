package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"StandupPulse/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func reply(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func fakeGemini(resp *genai.GenerateContentResponse, err error, seen *string) *Gemini {
	return &Gemini{
		model: "test-model",
		generate: func(_ context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
			if seen != nil && len(contents) > 0 && len(contents[0].Parts) > 0 {
				*seen = contents[0].Parts[0].Text
			}
			return resp, err
		},
		log: logger.Discard(),
	}
}

func TestAnalyzeJoinsParts(t *testing.T) {
	var prompt string
	g := fakeGemini(reply("The API work is blocked. ", "Ask the platform team today."), nil, &prompt)

	note, err := g.Analyze(context.Background(), "Today: API\nBlockers: waiting on keys")
	require.NoError(t, err)
	assert.Equal(t, "The API work is blocked. Ask the platform team today.", note)
	assert.True(t, strings.HasSuffix(prompt, "Blockers: waiting on keys"))
}

func TestAnalyzeEmpty(t *testing.T) {
	g := fakeGemini(reply(), nil, nil)
	_, err := g.Analyze(context.Background(), "Today: docs")
	assert.ErrorIs(t, err, ErrEmptyAnalysis)

	_, err = g.Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyAnalysis)

	g = fakeGemini(&genai.GenerateContentResponse{}, nil, nil)
	_, err = g.Analyze(context.Background(), "Today: docs")
	assert.ErrorIs(t, err, ErrEmptyAnalysis)
}

func TestAnalyzeError(t *testing.T) {
	g := fakeGemini(nil, errors.New("quota exceeded"), nil)
	_, err := g.Analyze(context.Background(), "Today: docs")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
