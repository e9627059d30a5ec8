package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/tubebot/core/telegram/helpers"
)

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "callback", updateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, "command", updateKind(tele.Update{Message: &tele.Message{Text: "/start"}}))
	assert.Equal(t, "text", updateKind(tele.Update{Message: &tele.Message{Text: "youtu.be/x"}}))
	assert.Equal(t, "document", updateKind(tele.Update{Message: &tele.Message{Document: &tele.Document{}}}))
	assert.Equal(t, "other", updateKind(tele.Update{}))
}

type storeContext struct {
	tele.Context
	store map[string]any
}

func (s *storeContext) Update() tele.Update { return tele.Update{ID: 3, Message: &tele.Message{Text: "hi"}} }
func (s *storeContext) Chat() *tele.Chat { return &tele.Chat{ID: 9, Type: tele.ChatPrivate} }
func (s *storeContext) Sender() *tele.User { return &tele.User{ID: 9} }
func (s *storeContext) Text() string { return "hi" }
func (s *storeContext) Get(key string) any { return s.store[key] }
func (s *storeContext) Set(key string, v any) { s.store[key] = v }

func TestLoggerMiddlewareStoresContextOnce(t *testing.T) {
	c := &storeContext{store: map[string]any{}}
	calls := 0
	h := LoggerMiddleware(LoggerMiddleware(func(tele.Context) error {
		calls++
		return nil
	}))
	require.NoError(t, h(c))

	assert.Equal(t, 1, calls)
	_, ok := tghelpers.ContextFrom(c)
	assert.True(t, ok)
	assert.NotNil(t, c.store["update_start"])
}
