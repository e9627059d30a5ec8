package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/tubebot/core/config"
	coretelegram "github.com/m3rciful/tubebot/core/telegram"
)

type stubApp struct{ started, stopped bool }

func (a *stubApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started = true; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { a.stopped = true; return nil },
	}, nil
}

func loadEmpty(string) (ConfigCarrier, error) { return &coreconfig.Config{}, nil }

func TestRunWiresLifecycleHooks(t *testing.T) {
	t.Setenv("TUBEBOT_TEST_CONFIG", "config.yaml")
	app := &stubApp{}
	var loadedFrom string
	var bootCtx context.Context

	err := Run(Options{
		ConfigEnvVar: "TUBEBOT_TEST_CONFIG",
		Args:         []string{},
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedFrom = path
			return &coreconfig.Config{}, nil
		},
		Bootstrap: func(ctx context.Context, _ ConfigCarrier) (TelegramApp, error) {
			bootCtx = ctx
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", loadedFrom)
	assert.NotNil(t, bootCtx)
	assert.True(t, app.started)
	assert.True(t, app.stopped)
}

func TestRunRequiresConfigPath(t *testing.T) {
	t.Setenv("TUBEBOT_TEST_CONFIG", "")
	err := Run(Options{
		ConfigEnvVar: "TUBEBOT_TEST_CONFIG",
		Args:         []string{},
		LoadConfig:   loadEmpty,
		Bootstrap:    func(context.Context, ConfigCarrier) (TelegramApp, error) { return &stubApp{}, nil },
	})
	assert.ErrorContains(t, err, "config path not provided")
}

func TestResolveConfigPathPrefersFlag(t *testing.T) {
	t.Setenv("TUBEBOT_TEST_CONFIG", "env.yaml")

	path, err := resolveConfigPath(Options{ConfigEnvVar: "TUBEBOT_TEST_CONFIG", Args: []string{"-config", "flag.yaml"}})
	require.NoError(t, err)
	assert.Equal(t, "flag.yaml", path)

	path, err = resolveConfigPath(Options{ConfigEnvVar: "TUBEBOT_TEST_CONFIG", Args: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "env.yaml", path)
}

func TestRunPrintsVersion(t *testing.T) {
	var out bytes.Buffer
	err := Run(Options{
		Name:       "tubebot",
		Args:       []string{"-version"},
		Stdout:     &out,
		LoadConfig: loadEmpty,
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return &stubApp{}, nil },
	})
	assert.ErrorIs(t, err, ErrVersionRequested)
	assert.Contains(t, out.String(), "tubebot dev")
}
