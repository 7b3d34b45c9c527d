package engine

import (
	"errors"
	"fmt"

	"kaziflow/internal/domain"
)

var ErrUnknownStage = errors.New("unknown stage")

// RoleError indicates the acting role may not perform an operation.
type RoleError struct {
	Role   domain.UserRole
	Action string
}

func (e RoleError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Action)
}

// ValidationError indicates a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
