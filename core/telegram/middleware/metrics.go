package middleware

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/tubebot/core/telegram/helpers"
)

// ReplyMetricsMiddleware starts every update with empty reply counters.
// Handler summaries read them back through tghelpers.Replies.
func ReplyMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.ResetReplies(c)
		return next(c)
	}
}
