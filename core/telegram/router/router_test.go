package router

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tubebot/core/telegram"
	"github.com/m3rciful/tubebot/core/telegram/callbacks"
	"github.com/m3rciful/tubebot/core/telegram/commands"
)

// fakeContext implements the parts of tele.Context the routes touch.
type fakeContext struct {
	tele.Context
	user      *tele.User
	text      string
	cb        *tele.Callback
	responded int

	mu    sync.Mutex
	store map[string]any
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{user: &tele.User{ID: userID}, store: map[string]any{}}
}

func (f *fakeContext) Sender() *tele.User { return f.user }
func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: f.user.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Text() string { return f.text }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1, Callback: f.cb} }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded++
	return nil
}

func (f *fakeContext) Get(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}

func (f *fakeContext) Set(key string, val any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = val
}

type recordingSerializer struct {
	keys []int64
}

func (r *recordingSerializer) Submit(key int64, fn func()) {
	r.keys = append(r.keys, key)
	fn()
}

func TestTextRoutesSubmitFallbackUnderSender(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	reg.SetTextFallback(func(c tele.Context) error {
		got = append(got, c.Text())
		return nil
	})
	ser := &recordingSerializer{}
	routes := TextRoutes(reg, TextOptions{Serializer: ser})
	require.Len(t, routes, 2)
	assert.Equal(t, tele.OnText, routes[0].Endpoint)

	c := newFakeContext(42)
	c.text = "https://youtu.be/abc"
	require.NoError(t, routes[0].Handler(c))

	assert.Equal(t, []string{"https://youtu.be/abc"}, got)
	assert.Equal(t, []int64{42}, ser.keys)
}

func TestTextRoutesRunsRegisteredCommandByName(t *testing.T) {
	reg := tg.NewRegistry()
	var ran, fallback bool
	require.NoError(t, reg.RegisterCommand("/help", commands.Command{
		Description: "help",
		Handler:     func(tele.Context) error { ran = true; return nil },
	}))
	reg.SetTextFallback(func(tele.Context) error { fallback = true; return nil })

	c := newFakeContext(1)
	c.text = "/help@tube_bot extra"
	require.NoError(t, TextRoutes(reg, TextOptions{})[0].Handler(c))

	assert.True(t, ran)
	assert.False(t, fallback)
}

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	reg := tg.NewRegistry()
	var payload string
	require.NoError(t, reg.RegisterCallback("act", func(c tele.Context) error {
		_, payload = callbacks.Parse(c.Callback())
		return nil
	}))
	ser := &recordingSerializer{}
	route := CallbackRoute(reg, CallbackOptions{Serializer: ser})

	c := newFakeContext(7)
	c.cb = &tele.Callback{Data: "\fact|tags"}
	require.NoError(t, route.Handler(c))

	assert.Equal(t, "tags", payload)
	assert.Equal(t, 1, c.responded)
	assert.Equal(t, []int64{7}, ser.keys)
}

func TestCallbackRouteFallsBackForUnknownKey(t *testing.T) {
	reg := tg.NewRegistry()
	var notFound bool
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(tele.Context) error {
		notFound = true
		return nil
	}})

	c := newFakeContext(7)
	c.cb = &tele.Callback{Data: "\fnope"}
	require.NoError(t, route.Handler(c))
	assert.True(t, notFound)
}

func TestCommandRoutesRejectNonAdmin(t *testing.T) {
	reg := tg.NewRegistry()
	var ran, rejected bool
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{
		Description: "stats",
		AdminOnly:   true,
		Handler:     func(tele.Context) error { ran = true; return nil },
	}))
	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID:       100,
		OnAdminReject: func(tele.Context) error { rejected = true; return nil },
	})
	require.Len(t, routes, 1)

	require.NoError(t, routes[0].Handler(newFakeContext(5)))
	assert.False(t, ran)
	assert.True(t, rejected)

	require.NoError(t, routes[0].Handler(newFakeContext(100)))
	assert.True(t, ran)
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string { return "not found" }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", errorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "OPERROR", errorCode(&net.OpError{Op: "dial", Err: errors.New("x")}))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
