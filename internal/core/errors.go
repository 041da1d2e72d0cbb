package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching of the typed errors below.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

type (
	Action     string
	DenyReason string
)

const (
	ManageUsers       Action = "manage_users"
	ManageAccounts    Action = "manage_accounts"
	ManageCategories  Action = "manage_categories"
	CreateTransaction Action = "create_transaction"
	EditTransaction   Action = "edit_transaction"
	ViewTransactions  Action = "view_transactions"
	CreateBudget      Action = "create_budget"
	ViewReports       Action = "view_reports"
	ExportCSV         Action = "export_csv"

	InsufficientRole DenyReason = "InsufficientRole"
	NotOwner         DenyReason = "NotOwner"
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return "validation: " + e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

type AuthorizationError struct {
	Role   Role
	Action Action
	Reason DenyReason
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %s may not %s: %s", e.Role, e.Action, e.Reason)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Msg }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}
