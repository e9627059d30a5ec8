// Package dispatch drives the per-user menu state machine behind the membership gate.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/tubebot/bot/extract"
	"github.com/m3rciful/tubebot/bot/history"
	"github.com/m3rciful/tubebot/bot/session"
	"github.com/m3rciful/tubebot/bot/topics"
	"github.com/m3rciful/tubebot/bot/urlnorm"
	"github.com/m3rciful/tubebot/core/logger"
)

// Kind classifies how a handled event ended for the user.
type Kind string

const (
	KindOK               Kind = "ok"
	KindGateDenied       Kind = "gate_denied"
	KindInvalidAddress   Kind = "invalid_address"
	KindEmptyField       Kind = "empty_field"
	KindExtraction       Kind = "extraction_failure"
	KindGeneration       Kind = "generation_failure"
	KindNoActionSelected Kind = "no_action_selected"
)

// Gatekeeper answers whether a user may proceed.
type Gatekeeper interface {
	Check(ctx context.Context, userID int64) bool
}

// Extractor resolves a link into the requested field.
type Extractor interface {
	Extract(ctx context.Context, addr urlnorm.Address, action session.Action) extract.Result
}

// IdeaGenerator produces topic ideas for a keyword.
type IdeaGenerator interface {
	Ideas(ctx context.Context, keyword string) (string, error)
}

// Options wires the dispatcher's collaborators.
type Options struct {
	Gate      Gatekeeper
	Sessions  *session.Store
	Extractor Extractor
	Ideas     IdeaGenerator
	// History is optional.
	History history.Recorder
	// JoinURL is the public link to the gated channel.
	JoinURL string
}

// Dispatcher turns events into replies. It is safe for concurrent use across users;
// events of a single user must be delivered in order.
type Dispatcher struct {
	gate      Gatekeeper
	sessions  *session.Store
	extractor Extractor
	ideas     IdeaGenerator
	history   history.Recorder
	joinURL   string
}

// New validates opts and constructs a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Gate == nil:
		return nil, errors.New("dispatch: gate is required")
	case opts.Sessions == nil:
		return nil, errors.New("dispatch: session store is required")
	case opts.Extractor == nil:
		return nil, errors.New("dispatch: extractor is required")
	case opts.Ideas == nil:
		return nil, errors.New("dispatch: idea generator is required")
	case strings.TrimSpace(opts.JoinURL) == "":
		return nil, errors.New("dispatch: join URL is required")
	}
	return &Dispatcher{
		gate:      opts.Gate,
		sessions:  opts.Sessions,
		extractor: opts.Extractor,
		ideas:     opts.Ideas,
		history:   opts.History,
		joinURL:   opts.JoinURL,
	}, nil
}

// Handle processes one event and returns the replies to send, in order.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) []Reply {
	start := time.Now()
	var (
		replies []Reply
		kind    Kind
	)
	switch ev.Kind {
	case KindCommand:
		replies, kind = d.onCommand(ctx, ev)
	case KindButton:
		replies, kind = d.onButton(ctx, ev)
	case KindText:
		replies, kind = d.onText(ctx, ev)
	default:
		return nil
	}
	logger.Info(ctx, "dispatch", "dispatch.handled",
		slog.String("kind", ev.Kind.String()),
		slog.String("outcome", outcomeFor(kind)),
		slog.String("result", string(kind)),
		slog.Int("replies", len(replies)),
		slog.Duration("duration", logger.Took(start)),
	)
	return replies
}

func (d *Dispatcher) onCommand(ctx context.Context, ev Event) ([]Reply, Kind) {
	if !d.gate.Check(ctx, ev.UserID) {
		return []Reply{joinReply(d.joinURL, false)}, KindGateDenied
	}
	if ev.Name != CommandStart {
		return []Reply{plain(textNoAction)}, KindNoActionSelected
	}
	d.sessions.Clear(ev.UserID)
	return []Reply{menuReply(false)}, KindOK
}

func (d *Dispatcher) onButton(ctx context.Context, ev Event) ([]Reply, Kind) {
	// Returning to the menu drops the pending action even for users who left the channel.
	if ev.Data == DataMenu {
		d.sessions.Clear(ev.UserID)
	}
	if !d.gate.Check(ctx, ev.UserID) {
		return []Reply{joinReply(d.joinURL, true)}, KindGateDenied
	}

	switch {
	case ev.Data == DataRecheck:
		d.sessions.Clear(ev.UserID)
		return []Reply{menuReply(true)}, KindOK
	case ev.Data == DataMenu:
		return []Reply{menuReply(true)}, KindOK
	case ev.Data == DataDownload:
		return []Reply{plain(textDownloadStub), menuAgainReply()}, KindOK
	case strings.HasPrefix(ev.Data, actionPrefix):
		action, ok := session.ParseAction(strings.TrimPrefix(ev.Data, actionPrefix))
		if !ok {
			return []Reply{menuReply(true)}, KindOK
		}
		d.sessions.Select(ev.UserID, action)
		logger.Debug(ctx, "dispatch", "action.selected", slog.String("action", string(action)))
		return []Reply{promptReply(action)}, KindOK
	default:
		return []Reply{menuReply(true)}, KindOK
	}
}

func (d *Dispatcher) onText(ctx context.Context, ev Event) ([]Reply, Kind) {
	if !d.gate.Check(ctx, ev.UserID) {
		return []Reply{joinReply(d.joinURL, false)}, KindGateDenied
	}
	action, ok := d.sessions.Take(ev.UserID)
	if !ok {
		return []Reply{plain(textNoAction)}, KindNoActionSelected
	}

	var (
		reply   Reply
		kind    Kind
		outcome history.Outcome
		reason  string
	)
	if action == session.ActionTopicIdeas {
		reply, kind, outcome, reason = d.topicIdeas(ctx, ev.Text)
	} else {
		reply, kind, outcome, reason = d.extractField(ctx, action, ev.Text)
	}
	d.record(ctx, history.Entry{
		UserID:  ev.UserID,
		Action:  string(action),
		Input:   ev.Text,
		Outcome: outcome,
		Reason:  reason,
	})
	return []Reply{reply, menuAgainReply()}, kind
}

func (d *Dispatcher) extractField(ctx context.Context, action session.Action, text string) (Reply, Kind, history.Outcome, string) {
	addr, err := urlnorm.Normalize(text)
	if err != nil {
		return plain(textInvalidLink), KindInvalidAddress, history.OutcomeInvalidAddress, err.Error()
	}
	switch res := d.extractor.Extract(ctx, addr, action).(type) {
	case extract.Success:
		return plain(res.Value), KindOK, history.OutcomeSuccess, ""
	case extract.Empty:
		return plain(res.Message), KindEmptyField, history.OutcomeEmpty, ""
	case extract.Failure:
		return plain(textFetchFailed + res.Reason), KindExtraction, history.OutcomeFailure, res.Reason
	default:
		reason := fmt.Sprintf("unexpected extraction result %T", res)
		return plain(textFetchFailed + reason), KindExtraction, history.OutcomeFailure, reason
	}
}

func (d *Dispatcher) topicIdeas(ctx context.Context, keyword string) (Reply, Kind, history.Outcome, string) {
	ideas, err := d.ideas.Ideas(ctx, keyword)
	if err != nil {
		reason := err.Error()
		var gerr *topics.GenerationError
		if errors.As(err, &gerr) {
			reason = gerr.Reason()
		}
		return plain(textGenFailed + "\nReason: " + reason), KindGeneration, history.OutcomeGenerationFailure, reason
	}
	return plain(textIdeasHeader + topics.PromptKeyword(keyword) + "\n\n" + ideas), KindOK, history.OutcomeSuccess, ""
}

func (d *Dispatcher) record(ctx context.Context, e history.Entry) {
	if d.history == nil {
		return
	}
	if err := d.history.Record(ctx, e); err != nil {
		logger.Warn(ctx, "history", "history.record_failed",
			slog.String("action", e.Action),
			slog.String("err", err.Error()),
		)
	}
}

func outcomeFor(k Kind) string {
	switch k {
	case KindOK:
		return "ok"
	case KindGateDenied:
		return "denied"
	case KindInvalidAddress:
		return "invalid_address"
	case KindEmptyField:
		return "empty"
	case KindGeneration:
		return "generation_failure"
	case KindNoActionSelected:
		return "no_action"
	default:
		return "fail"
	}
}
