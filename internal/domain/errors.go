package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoOutputPath  = errors.New("output path not set")
	ErrFinalization  = errors.New("finalizing recording")
	ErrRelease       = errors.New("releasing encoder")
	ErrNotRecording  = errors.New("not recording")
	ErrQueueFull     = errors.New("command queue full")
	ErrServiceClosed = errors.New("recorder service stopped")
)

type AcquisitionStage string

const (
	StageConfigure AcquisitionStage = "configure"
	StagePrepare   AcquisitionStage = "prepare"
	StageStart     AcquisitionStage = "start"
)

// AcquisitionError reports that an encoder could not be brought up. It is
// fatal for the hosting service.
type AcquisitionError struct {
	Stage AcquisitionStage
	Err   error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring encoder (%s): %v", e.Stage, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

func IsAcquisitionError(err error) bool {
	var ae *AcquisitionError
	return errors.As(err, &ae)
}
