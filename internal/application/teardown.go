package application

import (
	"errors"
	"fmt"
	"log/slog"
)

type teardownStep struct {
	name string
	kind error
	run  func() error
}

// runTeardown runs every step in order. A failing or panicking step is logged
// and collected; it never keeps later steps from running.
func runTeardown(logger *slog.Logger, steps ...teardownStep) error {
	var errs []error
	for _, step := range steps {
		if err := runStep(step); err != nil {
			logger.Warn("teardown step failed", "step", step.name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runStep(step teardownStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", step.kind, step.name, r)
		}
	}()
	if err := step.run(); err != nil {
		return fmt.Errorf("%w: %w", step.kind, err)
	}
	return nil
}
