package services

import "fmt"

// ValidationError marks bad input attributable to a single field.
// Handlers map it to 400; it is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError marks a referenced resource that does not exist.
// Handlers map it to 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StorageError wraps a persistence failure. Handlers map it to 500
// and log the wrapped error without exposing it to the client.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
