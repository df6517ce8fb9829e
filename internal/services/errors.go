package services

import (
	"errors"
	"fmt"

	"mcacrm/internal/repos"
)

// NotFoundError maps to 404.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// ConflictError maps to 409.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// RuleError is a business rule rejection and maps to 400.
type RuleError struct{ Msg string }

func (e *RuleError) Error() string { return e.Msg }

func NotFound(resource string) error { return &NotFoundError{Msg: resource + " not found"} }

func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func Rule(format string, args ...any) error {
	return &RuleError{Msg: fmt.Sprintf(format, args...)}
}

// orNotFound turns a repository miss into a NotFoundError for resource.
func orNotFound(err error, resource string) error {
	if errors.Is(err, repos.ErrNotFound) {
		return NotFound(resource)
	}
	return err
}

// orConflict turns a unique-key violation into a ConflictError with msg.
func orConflict(err error, msg string) error {
	if errors.Is(err, repos.ErrDuplicate) {
		return &ConflictError{Msg: msg}
	}
	return err
}
