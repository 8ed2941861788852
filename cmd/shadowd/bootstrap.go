package main

import (
	"fmt"

	warthogconfig "github.com/warthog618/config"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/config"
	"github.com/warthog618/shadowd/internal/logging"
)

// loadConfigAndLogger builds the layered config stack and the zap logger it
// configures, the pair every subcommand needs before doing anything else.
func loadConfigAndLogger() (*warthogconfig.Config, *zap.Logger, error) {
	cfg := config.Load(configFile)
	log, err := logging.New(cfg.MustGet("log.level").String(), cfg.MustGet("log.format").String())
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}
