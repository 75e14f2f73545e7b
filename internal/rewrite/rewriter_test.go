package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (p *stubProvider) Rewrite(ctx context.Context, resumeText, jobDescription string) (string, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.text, p.err
}

const resume = "Jane Doe\nBackend engineer with six years of Go and Postgres experience."
const job = "Hiring a backend engineer fluent in Go, Kafka and Postgres for payments."

func TestRewrite_ProviderSuccess(t *testing.T) {
	answer := "SUMMARY\n" + strings.Repeat("Backend engineer focused on payments. ", 8)
	p := &stubProvider{text: "  " + answer + "\n"}

	res := New(p, time.Second).Rewrite(context.Background(), resume, job)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, strings.TrimSpace(answer), res.Text)
	assert.Equal(t, 1, p.calls)
}

func TestRewrite_FallbackCases(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		timeout  time.Duration
		reason   string
	}{
		{name: "no provider", provider: nil, reason: "no provider configured"},
		{name: "provider error", provider: &stubProvider{err: errors.New("429 rate limited")}, reason: "429 rate limited"},
		{name: "too short", provider: &stubProvider{text: "SUMMARY\nshort"}, reason: "too short"},
		{name: "timeout", provider: &stubProvider{text: strings.Repeat("x", 500), delay: time.Second}, timeout: 20 * time.Millisecond, reason: "deadline exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.provider, tt.timeout).Rewrite(context.Background(), resume, job)
			require.True(t, res.UsedFallback)
			assert.Equal(t, Fallback(resume, job), res.Text)
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
}

func TestFallback_Deterministic(t *testing.T) {
	first := New(nil, 0).Rewrite(context.Background(), resume, job)
	second := New(nil, 0).Rewrite(context.Background(), resume, job)
	assert.Equal(t, []byte(first.Text), []byte(second.Text))
}

func TestFallback_Shape(t *testing.T) {
	out := Fallback("  "+resume+"\n\n", job)
	assert.True(t, strings.HasPrefix(out, "PROFESSIONAL SUMMARY\n"))
	assert.Contains(t, out, "\n\n"+resume+"\n\n")
	assert.True(t, strings.HasSuffix(out, "• Innovative Solution Development"))
	assert.GreaterOrEqual(t, len(out), MinRewriteLength)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(resume, job)
	assert.Contains(t, p, "RESUME:\n"+resume)
	assert.Contains(t, p, "JOB DESCRIPTION:\n"+job)
}
