// Package topics asks a text-generation model for video title ideas.
package topics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/tubebot/core/logger"
)

// ErrNotConfigured is returned when no text-generation backend is available.
var ErrNotConfigured = errors.New("topic generation is not configured")

// ErrEmptyKeyword is returned for a blank keyword.
var ErrEmptyKeyword = errors.New("keyword is empty")

const (
	DefaultMaxTokens = 300
	DefaultTimeout   = 15 * time.Second
	maxKeywordRunes  = 200
)

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Unconfigured is the Completer used when no API key is set.
type Unconfigured struct{}

// Complete always fails with ErrNotConfigured.
func (Unconfigured) Complete(context.Context, string, int) (string, error) {
	return "", ErrNotConfigured
}

// GenerationError wraps any failure of the idea generation path.
type GenerationError struct {
	Keyword string
	Err     error
}

func (e *GenerationError) Error() string {
	return "generate topic ideas: " + e.Reason()
}

// Reason is the underlying cause in user-presentable form.
func (e *GenerationError) Reason() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Service builds the prompt and bounds the call to the Completer.
type Service struct {
	completer Completer
	maxTokens int
	timeout   time.Duration
}

// NewService constructs a Service. Non-positive limits select the defaults.
func NewService(completer Completer, maxTokens int, timeout time.Duration) *Service {
	if completer == nil {
		completer = Unconfigured{}
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{completer: completer, maxTokens: maxTokens, timeout: timeout}
}

// Prompt renders the request sent to the model for keyword.
func Prompt(keyword string) string {
	return fmt.Sprintf("You are a YouTube SEO expert. Given the keyword: %q, suggest 5 highly searchable YouTube video title ideas. Format them as a list.", keyword)
}

// PromptKeyword returns keyword as it is placed in the prompt: trimmed and cut to
// at most 200 runes.
func PromptKeyword(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if r := []rune(keyword); len(r) > maxKeywordRunes {
		keyword = strings.TrimSpace(string(r[:maxKeywordRunes]))
	}
	return keyword
}

// Ideas returns five title ideas for keyword. Every failure is a *GenerationError.
func (s *Service) Ideas(ctx context.Context, keyword string) (string, error) {
	keyword = PromptKeyword(keyword)
	if keyword == "" {
		return "", &GenerationError{Err: ErrEmptyKeyword}
	}

	start := time.Now()
	text, err := s.complete(ctx, Prompt(keyword))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("model returned no text")
	}
	attrs := []slog.Attr{
		slog.String("keyword", logger.SanitizeLimit(keyword, 64)),
		slog.Int("max_tokens", s.maxTokens),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		gerr := &GenerationError{Keyword: keyword, Err: err}
		logger.Warn(ctx, "topics", "topics.failed", append(attrs,
			slog.String("outcome", "generation_failure"),
			slog.String("err", gerr.Reason()),
		)...)
		return "", gerr
	}
	logger.Info(ctx, "topics", "topics.generated", append(attrs, slog.String("outcome", "ok"))...)
	return strings.TrimSpace(text), nil
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- answer{err: fmt.Errorf("completer panicked: %v", r)}
			}
		}()
		text, err := s.completer.Complete(ctx, prompt, s.maxTokens)
		ch <- answer{text: text, err: err}
	}()

	select {
	case a := <-ch:
		return a.text, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
