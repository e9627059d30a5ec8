// Package extract fetches video metadata and shapes it into the field a user asked for.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/m3rciful/tubebot/bot/session"
	"github.com/m3rciful/tubebot/bot/urlnorm"
	"github.com/m3rciful/tubebot/core/logger"
)

// Metadata is what a Source knows about one video.
type Metadata struct {
	Title string
	Tags  []string
}

// Source loads metadata for a canonical video address.
type Source interface {
	Fetch(ctx context.Context, address string) (Metadata, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, address string) (Metadata, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, address string) (Metadata, error) {
	return f(ctx, address)
}

// Result is one of Success, Empty or Failure.
type Result interface {
	isResult()
}

// Success carries the rendered field value.
type Success struct {
	Value string
}

// Empty means the video was found but the field had no data.
type Empty struct {
	Message string
}

// Failure carries a reason that is shown to the user as is.
type Failure struct {
	Reason string
}

func (Success) isResult() {}
func (Empty) isResult()   {}
func (Failure) isResult() {}

const (
	NoTagsMessage     = "No tags found."
	NoHashtagsMessage = "No hashtags found."
	TimeoutReason     = "request timed out"
	MissingTitle      = "video has no title"
)

// DefaultTimeout bounds a single Source call.
const DefaultTimeout = 10 * time.Second

// Orchestrator calls a Source once per request and classifies the outcome.
type Orchestrator struct {
	source  Source
	timeout time.Duration
}

// NewOrchestrator constructs an Orchestrator. A non-positive timeout selects DefaultTimeout.
func NewOrchestrator(source Source, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{source: source, timeout: timeout}
}

// Extract fetches addr and renders the field selected by action.
// The topic-idea action is not handled here and yields a Failure.
func (o *Orchestrator) Extract(ctx context.Context, addr urlnorm.Address, action session.Action) Result {
	if !action.NeedsLink() {
		return Failure{Reason: fmt.Sprintf("action %q does not take a video link", action)}
	}
	start := time.Now()
	meta, err := o.fetch(ctx, addr.String())
	attrs := []slog.Attr{
		slog.String("action", string(action)),
		slog.String("address", addr.String()),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		reason := failureReason(err)
		logger.Warn(ctx, "extract", "extract.failed", append(attrs,
			slog.String("outcome", "fail"),
			slog.String("err", reason),
		)...)
		return Failure{Reason: reason}
	}

	res := render(meta, action)
	outcome := "ok"
	switch res.(type) {
	case Empty:
		outcome = "empty"
	case Failure:
		outcome = "fail"
	}
	logger.Info(ctx, "extract", "extract.done", append(attrs,
		slog.String("outcome", outcome),
		slog.Int("tags", len(meta.Tags)),
	)...)
	return res
}

func (o *Orchestrator) fetch(ctx context.Context, address string) (Metadata, error) {
	if o == nil || o.source == nil {
		return Metadata{}, errors.New("no metadata source configured")
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type answer struct {
		meta Metadata
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- answer{err: fmt.Errorf("metadata source panicked: %v", r)}
			}
		}()
		m, err := o.source.Fetch(ctx, address)
		ch <- answer{meta: m, err: err}
	}()

	select {
	case a := <-ch:
		return a.meta, a.err
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	}
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutReason
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "unknown error"
}

func render(meta Metadata, action session.Action) Result {
	switch action {
	case session.ActionTitle:
		title := strings.TrimSpace(meta.Title)
		if title == "" {
			return Failure{Reason: MissingTitle}
		}
		return Success{Value: title}
	case session.ActionTags:
		tags := nonBlank(meta.Tags)
		if len(tags) == 0 {
			return Empty{Message: NoTagsMessage}
		}
		return Success{Value: strings.Join(tags, ", ")}
	case session.ActionHashtags:
		tags := Hashtags(meta.Tags)
		if len(tags) == 0 {
			return Empty{Message: NoHashtagsMessage}
		}
		return Success{Value: strings.Join(tags, " ")}
	default:
		return Failure{Reason: fmt.Sprintf("unsupported action %q", action)}
	}
}

// Hashtags lower-cases each keyword, strips its whitespace, and prefixes it with '#'.
// Keywords that are blank after stripping are skipped.
func Hashtags(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		tag := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, strings.ToLower(kw))
		if tag == "" {
			continue
		}
		out = append(out, "#"+tag)
	}
	return out
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
