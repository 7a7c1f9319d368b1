package model

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord     = errors.New("malformed record")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrDuplicateIdentifier = errors.New("duplicate identifier collision")
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidEntity       = errors.New("invalid entity")
)

// ErrorKind names the class of an ingestion error in reports.
type ErrorKind string

const (
	KindMalformedRecord     ErrorKind = "malformed_record"
	KindUnresolvedReference ErrorKind = "unresolved_reference"
	KindDuplicateIdentifier ErrorKind = "duplicate_identifier"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidEntity       ErrorKind = "invalid_entity"
	KindUnknown             ErrorKind = "unknown"
)

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMalformedRecord):
		return KindMalformedRecord
	case errors.Is(err, ErrUnresolvedReference):
		return KindUnresolvedReference
	case errors.Is(err, ErrDuplicateIdentifier):
		return KindDuplicateIdentifier
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidEntity):
		return KindInvalidEntity
	}
	return KindUnknown
}

// IsFatal reports whether err violates a store invariant and must end the session.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindDuplicateIdentifier, KindNotFound, KindInvalidEntity, KindUnknown:
		return true
	}
	return false
}

// RecordError locates an ingestion error in its input stream.
type RecordError struct {
	Stream string
	Line   int
	Type   RecordType
	Err    error
}

func (e *RecordError) Error() string {
	if len(e.Stream) > 0 {
		return fmt.Sprintf("%s:%d (%s): %v", e.Stream, e.Line, e.Type, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Line, e.Type, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Kind() ErrorKind {
	return KindOf(e.Err)
}

// UnresolvedReferenceError names the external id that was never registered.
type UnresolvedReferenceError struct {
	ExternalID string
	Reason     string
}

func (e *UnresolvedReferenceError) Error() string {
	if len(e.Reason) > 0 {
		return fmt.Sprintf("unresolved reference %q: %s", e.ExternalID, e.Reason)
	}
	return fmt.Sprintf("unresolved reference %q", e.ExternalID)
}

func (e *UnresolvedReferenceError) Is(target error) bool {
	return target == ErrUnresolvedReference
}
