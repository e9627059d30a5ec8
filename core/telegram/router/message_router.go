package router

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tubebot/core/telegram"
	"github.com/m3rciful/tubebot/core/telegram/middleware"
)

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	// Serializer orders handler runs per user. Nil runs handlers inline.
	Serializer Serializer
}

// TextRoutes builds handlers for text and document routing.
// Text naming a registered command goes to that command; the rest goes to the
// registry text fallback, then to UnknownText.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := strings.TrimSpace(c.Text())

		if reg != nil && strings.HasPrefix(text, "/") {
			name, _, _ := strings.Cut(text, " ")
			name, _, _ = strings.Cut(name, "@")
			if cmd, ok := reg.LookupCommand(name); ok && cmd.Handler != nil && !cmd.AdminOnly {
				handlerName := normalizeHandlerName(name)
				return serialize(opts.Serializer, c, handlerName, func() error {
					return handleWithSummary(c, handlerName, start, "", "", func() error {
						return cmd.Handler(c)
					})
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return serialize(opts.Serializer, c, "text", func() error {
					return handleWithSummary(c, "text", start, "", "", func() error {
						return fb(c)
					})
				})
			}
		}

		if opts.UnknownText != nil {
			return serialize(opts.Serializer, c, "unknown_text", func() error {
				return handleWithSummary(c, "unknown_text", start, "", "", func() error {
					return opts.UnknownText(c)
				})
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownDocument != nil {
			return serialize(opts.Serializer, c, "unexpected_document", func() error {
				return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
					return opts.UnknownDocument(c)
				})
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
