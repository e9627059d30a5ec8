package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/core/logger"
	"github.com/m3rciful/tubebot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// queueKey keeps every reply for one chat on the same sender worker.
func queueKey(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}

func sendAsync(c tele.Context, action, endpoint string, markup *tele.ReplyMarkup, run func() error) error {
	countReply(c, markup)
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, queueKey(c), action, endpoint, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueClosed):
		// The queue closes after the handlers have drained, so only late replies land here.
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	case errors.Is(err, sender.ErrQueueFull):
		// Sending inline would jump ahead of this chat's queued replies.
		logger.Error(ctx, "tg.sender", "queue.dropped",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
	}
	return err
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var (
		sendOpts *tele.SendOptions
		markup   *tele.ReplyMarkup
	)
	if len(opts) > 0 && opts[0] != nil {
		sendOpts = opts[0]
		markup = sendOpts.ReplyMarkup
	}
	return sendAsync(c, "send.text", "sendMessage", markup, func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: firstMarkup(markup)})
}

// EditOrSend replaces the message carrying the pressed button, or sends a new one
// when there is nothing to edit. parseMode may be empty for plain text.
func EditOrSend(c tele.Context, text string, parseMode tele.ParseMode, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: parseMode, ReplyMarkup: firstMarkup(markup)}
	return sendAsync(c, "send.edit", "editMessageText", opts.ReplyMarkup, func() error {
		if c.Callback() == nil {
			return c.Send(text, opts)
		}
		return c.EditOrSend(text, opts)
	})
}

func firstMarkup(markup []*tele.ReplyMarkup) *tele.ReplyMarkup {
	if len(markup) > 0 {
		return markup[0]
	}
	return nil
}
