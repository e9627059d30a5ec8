package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tubebot/core/telegram"
	"github.com/m3rciful/tubebot/core/telegram/callbacks"
	"github.com/m3rciful/tubebot/core/telegram/middleware"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	// Serializer orders handler runs per user. Nil runs handlers inline.
	Serializer Serializer
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// The callback is answered before the handler runs so the client stops its spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.Parse(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := opts.NotFound
			if fallback == nil {
				fallback = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return serialize(opts.Serializer, c, name, func() error {
				return handleWithSummary(c, name, start, "skip", "", func() error {
					if fallback != nil {
						return fallback(c)
					}
					return nil
				}, extras...)
			})
		}

		return serialize(opts.Serializer, c, name, func() error {
			return handleWithSummary(c, name, start, "", "", func() error {
				return cbHandler(c)
			}, extras...)
		})
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
