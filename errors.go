package vtable

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/model"
)

var (
	// ErrInvalidType is returned when a column type is not registered.
	ErrInvalidType = model.ErrInvalidType

	// ErrNotFound is returned when the target table, column, row or cell
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a transaction kept conflicting with
	// concurrent writers until its retries ran out.
	ErrConflict = errors.New("transaction conflict")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("vtable: db closed")
)

// InvalidTypeError carries the rejected column type.
type InvalidTypeError = model.InvalidTypeError

// NotFoundError names the missing entity.
//
// It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already one of ours.
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidType) || errors.Is(err, ErrValidation) {
		return err
	}

	if errors.Is(err, docstore.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if errors.Is(err, docstore.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, model.ErrInvalidOptions) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
