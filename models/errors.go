package models

import (
	"errors"
	"fmt"
)

// ValidationError is returned when required input is missing
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// FetchError covers network and parse failures when reaching a feed.
// StatusCode is zero when no HTTP response was received.
type FetchError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Url, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Url, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when an audio resource can not be retrieved
type NotFoundError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *NotFoundError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("audio %s: unexpected status %d", e.Url, e.StatusCode)
	}
	return fmt.Sprintf("audio %s: %v", e.Url, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// TranscriptionError wraps any failure of the speech-to-text backend
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsFetch(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsTranscription(err error) bool {
	var target *TranscriptionError
	return errors.As(err, &target)
}
