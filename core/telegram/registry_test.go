package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandNormalizesName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("Start", commands.Command{Handler: noop, Description: "menu"}))

	_, ok := reg.LookupCommand("/start")
	assert.True(t, ok)
	_, ok = reg.LookupCommand("start")
	assert.True(t, ok)

	err := reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "again"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRegisterCommandRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.RegisterCommand("", commands.Command{Handler: noop, Description: "x"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("x", commands.Command{Description: "x"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("x", commands.Command{Handler: noop}), ErrInvalidRegistration)
	assert.Empty(t, reg.Commands())
}

func TestListCommandsHidesAdminAndHidden(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "menu"}))
	require.NoError(t, reg.RegisterCommand("stats", commands.Command{Handler: noop, Description: "stats", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("debug", commands.Command{Handler: noop, Description: "debug", Hidden: true}))

	assert.Equal(t, []tele.Command{{Text: "/start", Description: "menu"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("menu", noop))
	require.NoError(t, reg.RegisterCallback("act", noop))
	assert.ErrorIs(t, reg.RegisterCallback("menu", noop), ErrDuplicate)
	assert.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidRegistration)

	assert.Equal(t, []string{"act", "menu"}, reg.ListCallbacks())
	_, ok := reg.GetCallback("act")
	assert.True(t, ok)

	reg.SetCallbackNotFound(nil)
	assert.NotNil(t, reg.CallbackNotFound())
}
