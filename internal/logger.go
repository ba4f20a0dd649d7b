package internal

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a sugared logger: development output when debug is set,
// JSON production output otherwise.
func NewLogger(debug bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar(), nil
}

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }
