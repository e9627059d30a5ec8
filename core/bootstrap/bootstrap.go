package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/tubebot/core/config"
	coredatabase "github.com/m3rciful/tubebot/core/database"
	"github.com/m3rciful/tubebot/core/logger"
)

const defaultDatabaseWait = 30 * time.Second

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	// Wait blocks until the database accepts connections.
	Wait    func(dsn string, timeout time.Duration) error
	Connect func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate func(coreconfig.DatabaseConfig) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil when the database is disabled.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger and, when the database is enabled, connects and applies migrations.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := opts.Config.Database
	if !dbCfg.Enabled {
		logger.DB.Info("database disabled",
			slog.String("event", "db.skip"),
			slog.String("outcome", "skip"),
		)
		return &Result{}, nil
	}

	wait := opts.Wait
	if wait == nil {
		wait = coredatabase.WaitForPostgres
	}
	if err := wait(coredatabase.DSN(dbCfg), defaultDatabaseWait); err != nil {
		return nil, fmt.Errorf("bootstrap: database unavailable: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(dbCfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
