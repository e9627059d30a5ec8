package router

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/core/telegram/middleware"
)

// Serializer runs jobs sharing a key one at a time, in submission order.
type Serializer interface {
	Submit(key int64, fn func())
}

// serialize hands fn to s under the sender's ID and returns at once.
// Without a serializer or a sender, fn runs inline.
func serialize(s Serializer, c tele.Context, name string, fn func() error) error {
	user := c.Sender()
	if s == nil || user == nil {
		return fn()
	}
	s.Submit(user.ID, func() {
		defer middleware.LogPanic(name)
		_ = fn()
	})
	return nil
}
