package middleware

import (
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/core/logger"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer LogPanic("handler")
		return next(c)
	}
}

// LogPanic recovers a panic in the calling goroutine and logs it. It must be deferred directly.
func LogPanic(where string) {
	if r := recover(); r != nil {
		logger.TG.Error("panic recovered",
			slog.String("event", "tg.panic"),
			slog.String("where", where),
			slog.Any("err", r),
			slog.String("stack", string(debug.Stack())),
		)
	}
}
