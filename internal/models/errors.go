package models

import (
	"errors"
	"fmt"
	"os"
)

// Classification sentinels. Match them with errors.Is.
var (
	ErrUnavailable  = errors.New("external service unavailable")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("malformed input")
)

// ServiceError wraps a failure at a collaborator boundary (embedder, vector store,
// completion model, document loader).
type ServiceError struct {
	Service string
	Op      string
	Kind    error
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Service, e.Op, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewServiceError builds a ServiceError of the given kind
func NewServiceError(service, op string, kind, err error) error {
	return &ServiceError{Service: service, Op: op, Kind: kind, Err: err}
}

// Unavailable wraps err as a failure of a remote or external service. Errors that are
// already classified are returned unchanged.
func Unavailable(service, op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return NewServiceError(service, op, ErrUnavailable, err)
}

// Classify picks a kind for an unclassified error coming out of a third-party client.
// Missing files map to ErrNotFound, everything else to ErrUnavailable.
func Classify(service, op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	if errors.Is(err, os.ErrNotExist) {
		return NewServiceError(service, op, ErrNotFound, err)
	}
	return NewServiceError(service, op, ErrUnavailable, err)
}

// Classified reports whether err already carries one of the kinds
func Classified(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput)
}
