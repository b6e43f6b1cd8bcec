// Package logging builds the loggers used by the commands.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New returns a development logger, or a JSON production logger when json is
// set.
func New(json bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if json {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}

	return logger.Sugar(), nil
}
