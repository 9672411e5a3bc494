package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// InsufficiencyError reports a stock shortfall with the exact available/required counts.
type InsufficiencyError struct {
	Resource  string
	Available int64
	Required  int64
}

func (e *InsufficiencyError) Error() string {
	return fmt.Sprintf("%s insufficient: available %d, required %d", e.Resource, e.Available, e.Required)
}

// NewInsufficiencyError builds an InsufficiencyError for the given resource.
func NewInsufficiencyError(resource string, available, required int64) *InsufficiencyError {
	return &InsufficiencyError{Resource: resource, Available: available, Required: required}
}
