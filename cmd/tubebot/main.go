package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/m3rciful/tubebot/bot/app"
	"github.com/m3rciful/tubebot/core/bootstrap"
	corecmd "github.com/m3rciful/tubebot/core/cmd"
	coreconfig "github.com/m3rciful/tubebot/core/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		Name:              "tubebot",
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: func(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg := carrier.CoreConfig()
			res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			a, err := app.New(ctx, app.Options{Config: cfg, DB: res.DB})
			if err != nil {
				if res.DB != nil {
					_ = res.DB.Close()
				}
				return nil, fmt.Errorf("build app: %w", err)
			}
			return a, nil
		},
	})
	if err != nil && !errors.Is(err, corecmd.ErrVersionRequested) {
		log.Fatal(err)
	}
}
