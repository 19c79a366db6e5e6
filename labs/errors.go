package labs

import (
	"errors"
	"fmt"
)

// ErrDeploymentSpent is returned when a recorded code cell has been spent
// since it was deployed.
var ErrDeploymentSpent = errors.New("deployment no longer live")

// ValidationError is returned when a transaction does not meet the
// requirements of a lab stage.
type ValidationError struct {
	Lab    string
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s lab: %s", e.Lab, e.Reason)
	}

	return fmt.Sprintf("%s lab, %s stage: %s", e.Lab, e.Stage, e.Reason)
}

func validationErr(lab, stage, format string,
	args ...interface{}) *ValidationError {

	return &ValidationError{
		Lab:    lab,
		Stage:  stage,
		Reason: fmt.Sprintf(format, args...),
	}
}
