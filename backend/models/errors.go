package models

import "errors"

var (
	// ErrInvalidOperation is returned when an update does not match the
	// lesson content type (e.g. grading a quiz attempt against a video lesson).
	ErrInvalidOperation = errors.New("operation does not match lesson type")

	// ErrValidation is returned for malformed operation payloads.
	ErrValidation = errors.New("invalid payload")

	ErrNotFound = errors.New("record not found")
)
