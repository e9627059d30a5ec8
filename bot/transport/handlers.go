// Package transport connects the dispatcher to Telegram: it turns updates into events,
// renders replies, and answers the gate's membership lookups.
package transport

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/bot/dispatch"
	"github.com/m3rciful/tubebot/bot/history"
	"github.com/m3rciful/tubebot/bot/session"
	"github.com/m3rciful/tubebot/core/logger"
	tg "github.com/m3rciful/tubebot/core/telegram"
	"github.com/m3rciful/tubebot/core/telegram/callbacks"
	"github.com/m3rciful/tubebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/tubebot/core/telegram/helpers"
)

const textStatsUnavailable = "Stats are unavailable right now."

// Options wires the handlers.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	Sessions   *session.Store
	Sequencer  *session.Sequencer
	History    history.Recorder
}

// Handlers adapts Telegram updates to dispatcher events.
type Handlers struct {
	disp     *dispatch.Dispatcher
	sessions *session.Store
	seq      *session.Sequencer
	history  history.Recorder
	now      func() time.Time
}

// NewHandlers validates opts.
func NewHandlers(opts Options) (*Handlers, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("transport: dispatcher is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("transport: session store is required")
	}
	return &Handlers{
		disp:     opts.Dispatcher,
		sessions: opts.Sessions,
		seq:      opts.Sequencer,
		history:  opts.History,
		now:      time.Now,
	}, nil
}

// Register adds the bot's commands, callbacks and text fallback to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	if err := reg.RegisterCommand(dispatch.CommandStart, commands.Command{
		Handler:     h.Start,
		Description: "Open the menu",
	}); err != nil {
		return err
	}
	if err := reg.RegisterCommand("stats", commands.Command{
		Handler:     h.Stats,
		Description: "Usage statistics",
		AdminOnly:   true,
		Hidden:      true,
	}); err != nil {
		return err
	}
	for _, key := range dispatch.ButtonKeys {
		if err := reg.RegisterCallback(key, h.Button); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.Button)
	reg.SetTextFallback(h.Text)
	return nil
}

// Start handles /start.
func (h *Handlers) Start(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	return h.handle(c, dispatch.Event{Kind: dispatch.KindCommand, UserID: user.ID, Name: dispatch.CommandStart})
}

// Button handles inline button presses.
func (h *Handlers) Button(c tele.Context) error {
	user := c.Sender()
	if user == nil || c.Callback() == nil {
		return nil
	}
	return h.handle(c, dispatch.Event{Kind: dispatch.KindButton, UserID: user.ID, Data: callbacks.Data(c)})
}

// Text handles plain text and commands nobody registered.
func (h *Handlers) Text(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	return h.handle(c, textEvent(user.ID, c.Text()))
}

// Stats replies to the admin with a usage summary.
func (h *Handlers) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if h.history == nil {
		tghelpers.SetOutcome(c, "skip")
		return tghelpers.SendText(c, textStatsUnavailable)
	}
	sum, err := h.history.Summary(ctx, h.now().Add(-statsWindow))
	if err != nil {
		logger.Warn(ctx, "transport", "stats.failed",
			slog.String("outcome", "fail"),
			slog.String("err", err.Error()),
		)
		tghelpers.SetOutcome(c, "fail")
		return tghelpers.SendText(c, textStatsUnavailable)
	}
	active := 0
	if h.seq != nil {
		active = h.seq.Active()
	}
	return tghelpers.SendMD(c, formatStats(sum, h.sessions.Len(), active))
}

func (h *Handlers) handle(c tele.Context, ev dispatch.Event) error {
	ctx := tghelpers.BuildContext(c)
	return deliver(c, h.disp.Handle(ctx, ev))
}

// textEvent classifies a message: "/name args" is a command, anything else is text.
func textEvent(userID int64, text string) dispatch.Event {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") {
		name, _, _ := strings.Cut(trimmed[1:], " ")
		name, _, _ = strings.Cut(name, "@")
		return dispatch.Event{Kind: dispatch.KindCommand, UserID: userID, Name: strings.ToLower(name)}
	}
	return dispatch.Event{Kind: dispatch.KindText, UserID: userID, Text: text}
}
