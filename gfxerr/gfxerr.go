// Package gfxerr defines the failure taxonomy shared by the renderer and its
// frame scheduler. Errors produced by those packages carry exactly one of the
// kind marks below, so callers can branch with errors.Is or KindOf without
// parsing messages.
package gfxerr

import (
	"github.com/cockroachdb/errors"
)

// Kind marks. Use errors.Is(err, ErrSubmission) and friends to test for them.
var (
	ErrInitialization   = errors.New("initialization failure")
	ErrResourceCreation = errors.New("resource creation failed")
	ErrSubmission       = errors.New("submission failed")
	ErrPresentation     = errors.New("presentation failed")
)

// ErrNoSuitableDevice is returned when no physical device passes selection.
var ErrNoSuitableDevice = errors.Mark(errors.New("no suitable GPU found"), ErrInitialization)

// ErrSurfaceOutOfDate is attached when acquire or present reports the surface
// no longer matches the swap chain. Nothing recreates the swap chain; the
// error is surfaced so the application can decide what to do.
var ErrSurfaceOutOfDate = errors.New("surface out of date")

type Kind int

const (
	KindUnknown Kind = iota
	KindInitialization
	KindResourceCreation
	KindSubmission
	KindPresentation
)

func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "InitializationFailure"
	case KindResourceCreation:
		return "ResourceCreationFailed"
	case KindSubmission:
		return "SubmissionFailed"
	case KindPresentation:
		return "PresentationFailed"
	}
	return "Unknown"
}

// KindOf reports which taxonomy kind err was marked with.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInitialization):
		return KindInitialization
	case errors.Is(err, ErrResourceCreation):
		return KindResourceCreation
	case errors.Is(err, ErrSubmission):
		return KindSubmission
	case errors.Is(err, ErrPresentation):
		return KindPresentation
	}
	return KindUnknown
}

// Initialization wraps err with msg and marks it as an initialization failure.
// It returns nil when err is nil.
func Initialization(err error, msg string) error {
	return mark(err, msg, ErrInitialization)
}

// ResourceCreation wraps err with msg and marks it as a resource creation failure.
func ResourceCreation(err error, msg string) error {
	return mark(err, msg, ErrResourceCreation)
}

// Submission wraps err with msg and marks it as a submission failure.
func Submission(err error, msg string) error {
	return mark(err, msg, ErrSubmission)
}

// Presentation wraps err with msg and marks it as a presentation failure.
func Presentation(err error, msg string) error {
	return mark(err, msg, ErrPresentation)
}

func mark(err error, msg string, kind error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WrapWithDepth(2, err, msg), kind)
}
