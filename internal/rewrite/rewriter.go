package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrRewriteFailed marks a provider failure. It never leaves this package:
// Rewrite recovers from it with Fallback.
var ErrRewriteFailed = errors.New("rewrite failed")

// MinRewriteLength is the shortest provider answer accepted as a resume.
const MinRewriteLength = 200

// Provider is an external text-generation capability.
type Provider interface {
	Rewrite(ctx context.Context, resumeText, jobDescription string) (string, error)
}

// Result is the optimized text plus which path produced it.
type Result struct {
	Text         string
	UsedFallback bool
	Reason       string
}

// Rewriter asks the provider for an ATS rewrite and falls back to a
// deterministic template when the provider is missing, slow or unhelpful.
type Rewriter struct {
	provider Provider
	timeout  time.Duration
}

func New(provider Provider, timeout time.Duration) *Rewriter {
	return &Rewriter{provider: provider, timeout: timeout}
}

// Rewrite always returns usable text.
func (r *Rewriter) Rewrite(ctx context.Context, resumeText, jobDescription string) Result {
	text, err := r.tryProvider(ctx, resumeText, jobDescription)
	if err != nil {
		slog.Warn("using fallback optimization", "error", err)
		return Result{
			Text:         Fallback(resumeText, jobDescription),
			UsedFallback: true,
			Reason:       err.Error(),
		}
	}
	return Result{Text: text}
}

func (r *Rewriter) tryProvider(ctx context.Context, resumeText, jobDescription string) (string, error) {
	if r.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrRewriteFailed)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.provider.Rewrite(ctx, resumeText, jobDescription)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRewriteFailed, err)
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < MinRewriteLength {
		return "", fmt.Errorf("%w: generated resume too short (%d chars)", ErrRewriteFailed, n)
	}
	return text, nil
}

const fallbackSummary = `PROFESSIONAL SUMMARY
Results-oriented professional with extensive experience in delivering high-quality solutions.
Proven track record in team collaboration, project management, and innovative problem-solving.
Strong analytical and communication skills with a focus on achieving organizational goals.`

const fallbackSkills = `ADDITIONAL SKILLS
• Project Management and Team Leadership
• Analytical Problem-Solving
• Effective Communication
• Results-Oriented Approach
• Collaborative Team Work
• Innovative Solution Development`

// Fallback wraps the original resume in a fixed summary and skills block. It
// is pure concatenation; the job description is accepted for signature
// parity but does not influence the output.
func Fallback(resumeText, _ string) string {
	return fallbackSummary + "\n\n" + strings.TrimSpace(resumeText) + "\n\n" + fallbackSkills
}
