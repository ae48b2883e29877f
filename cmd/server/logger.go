package main

import (
	"github.com/septivank/utility-metering-api/internal/config"
	"github.com/septivank/utility-metering-api/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
