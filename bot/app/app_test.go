package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/bot/dispatch"
	"github.com/m3rciful/tubebot/bot/gate"
	"github.com/m3rciful/tubebot/bot/history"
	"github.com/m3rciful/tubebot/bot/topics"
	coreconfig "github.com/m3rciful/tubebot/core/config"
	tg "github.com/m3rciful/tubebot/core/telegram"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{Token: "123:abc", AdminID: 9},
		Channel:  coreconfig.ChannelConfig{Username: "https://t.me/tubechan"},
	}
	require.NoError(t, coreconfig.Normalize(cfg))

	bot, err := tele.NewBot(tele.Settings{Token: cfg.Telegram.Token, Offline: true})
	require.NoError(t, err)

	a, err := New(context.Background(), Options{
		Config: cfg,
		Bot:    bot,
		Lookup: gate.LookupFunc(func(context.Context, string, int64) (gate.Status, error) {
			return gate.StatusMember, nil
		}),
		Completer: topics.Unconfigured{},
	})
	require.NoError(t, err)
	return a
}

func TestNewWiresMemoryHistoryWithoutDatabase(t *testing.T) {
	a := testApp(t)
	_, ok := a.history.(*history.Memory)
	assert.True(t, ok)
	assert.ElementsMatch(t, dispatch.ButtonKeys, a.registry.ListCallbacks())

	visible := a.registry.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "/start", visible[0].Text)
}

func TestTelegramRunOptions(t *testing.T) {
	a := testApp(t)
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	assert.Same(t, a.bot, opts.Bot)
	assert.Same(t, a.registry, opts.Registry)
	// two commands, one callback route, text and document routes
	assert.Len(t, opts.Routes, 5)
	assert.NotEmpty(t, opts.Middlewares)

	require.NoError(t, opts.OnStart(context.Background(), tg.Runtime{}))
	assert.Nil(t, a.stopSweep)
	require.NoError(t, opts.OnStop(context.Background(), tg.Runtime{}))
}

func TestOnStartSchedulesSweepWithTTL(t *testing.T) {
	a := testApp(t)
	a.cfg.Session.TTLMinutes = 30
	require.NoError(t, a.onStart(context.Background(), tg.Runtime{}))
	require.NotNil(t, a.stopSweep)
	require.NoError(t, a.onStop(context.Background(), tg.Runtime{}))
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}
