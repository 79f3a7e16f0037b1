package docstore

import "errors"

var (
	// ErrConflict is returned when a transaction's reads were invalidated by
	// a concurrent commit and retries are exhausted.
	ErrConflict = errors.New("docstore: transaction conflict")

	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrDuplicateID is returned by Insert when the id is taken.
	ErrDuplicateID = errors.New("docstore: duplicate document id")

	// ErrNotUnique is returned by Query.Unique when more than one document matches.
	ErrNotUnique = errors.New("docstore: query matched more than one document")

	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("docstore: read-only transaction")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("docstore: store closed")

	// ErrTxDone is returned when a transaction is used after it finished.
	ErrTxDone = errors.New("docstore: transaction already finished")

	// ErrUnknownCollection is returned for collections not registered at Open.
	ErrUnknownCollection = errors.New("docstore: unknown collection")

	// ErrUnknownIndex is returned by Query for an undeclared index.
	ErrUnknownIndex = errors.New("docstore: unknown index")
)
