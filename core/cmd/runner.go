// Package cmd hosts the process entrypoint shared by bot binaries.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/tubebot/core/buildinfo"
	coreconfig "github.com/m3rciful/tubebot/core/config"
	"github.com/m3rciful/tubebot/core/logger"
	coretelegram "github.com/m3rciful/tubebot/core/telegram"
)

// ErrVersionRequested is returned after -version printed the build metadata.
var ErrVersionRequested = errors.New("cmd: version requested")

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	Name              string
	ConfigEnvVar      string
	DefaultConfigPath string
	// Args are the command line arguments without the program name. Nil means os.Args[1:].
	Args []string
	// Stdout receives -version output. Nil means os.Stdout.
	Stdout io.Writer

	LoadConfig func(path string) (ConfigCarrier, error)
	// Bootstrap receives a context that is cancelled on SIGINT or SIGTERM.
	Bootstrap func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the Telegram app, and starts the bot runtime.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return errors.New("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return errors.New("cmd: Bootstrap is required")
	}

	cfgPath, err := resolveConfigPath(opts)
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	wrapLifecycle(&runOpts, startedAt)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// resolveConfigPath picks -config, then the env variable, then the default path.
func resolveConfigPath(opts Options) (string, error) {
	name := opts.Name
	if name == "" {
		name = "bot"
	}
	args := opts.Args
	if args == nil {
		args = os.Args[1:]
	}
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configFlag := fs.String("config", "", "path to the YAML config (overrides $"+env+")")
	versionFlag := fs.Bool("version", false, "print build information and exit")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("cmd: %w", err)
	}

	if *versionFlag {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintf(out, "%s %s (%s) %s\n", name, buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		return "", ErrVersionRequested
	}

	switch {
	case *configFlag != "":
		return *configFlag, nil
	case os.Getenv(env) != "":
		return os.Getenv(env), nil
	case opts.DefaultConfigPath != "":
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via -config, %s or DefaultConfigPath", env)
}

func wrapLifecycle(runOpts *coretelegram.RunOptions, startedAt time.Time) {
	appLog := logger.L.With("component", "app")

	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		appLog.Info("app ready",
			slog.String("event", "ready"),
			slog.String("version", buildinfo.Version),
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		appLog.Info("shutting down...", slog.String("event", "shutdown"))
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}
}
