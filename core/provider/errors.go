// Package provider defines the shared error taxonomy for the external
// service clients (completion, catalog, image generation).
package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a provider failure.
type Kind string

const (
	// KindUnconfigured means the provider credential is missing.
	// Expected, not exceptional: callers degrade instead of failing.
	KindUnconfigured Kind = "unconfigured"
	// KindHTTP means the remote call returned a non-success status
	// (or the transport failed outright, status 0).
	KindHTTP Kind = "http"
	// KindMalformedResponse means the call succeeded but the payload
	// violates the expected schema.
	KindMalformedResponse Kind = "malformed_response"
	// KindNoImagesGenerated means every attempt in an image batch failed.
	KindNoImagesGenerated Kind = "no_images_generated"
)

// Error is a structured provider failure.
type Error struct {
	Provider string
	Kind     Kind
	Status   int      // set for KindHTTP
	Missing  []string // set for KindMalformedResponse: missing/invalid fields
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindUnconfigured:
		return fmt.Sprintf("%s: provider not configured", e.Provider)
	case KindHTTP:
		if e.Err != nil {
			return fmt.Sprintf("%s: request failed (status %d): %v", e.Provider, e.Status, e.Err)
		}
		return fmt.Sprintf("%s: request failed (status %d)", e.Provider, e.Status)
	case KindMalformedResponse:
		if len(e.Missing) > 0 {
			return fmt.Sprintf("%s: malformed response, missing or invalid fields: %s", e.Provider, strings.Join(e.Missing, ", "))
		}
		if e.Err != nil {
			return fmt.Sprintf("%s: malformed response: %v", e.Provider, e.Err)
		}
		return fmt.Sprintf("%s: malformed response", e.Provider)
	case KindNoImagesGenerated:
		return fmt.Sprintf("%s: all image generation attempts failed", e.Provider)
	}
	return fmt.Sprintf("%s: provider error", e.Provider)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Unconfigured reports a missing credential.
func Unconfigured(providerName string) *Error {
	return &Error{Provider: providerName, Kind: KindUnconfigured}
}

// HTTPError reports a failed remote call. status is 0 when the
// transport itself failed before a status was received.
func HTTPError(providerName string, status int, err error) *Error {
	return &Error{Provider: providerName, Kind: KindHTTP, Status: status, Err: err}
}

// Malformed reports a schema violation, listing the offending fields.
func Malformed(providerName string, missing ...string) *Error {
	return &Error{Provider: providerName, Kind: KindMalformedResponse, Missing: missing}
}

// MalformedErr reports a payload that could not be parsed at all.
func MalformedErr(providerName string, err error) *Error {
	return &Error{Provider: providerName, Kind: KindMalformedResponse, Err: err}
}

// NoImages reports an image batch in which every attempt failed.
func NoImages(providerName string) *Error {
	return &Error{Provider: providerName, Kind: KindNoImagesGenerated}
}

// KindOf extracts the Kind from an error chain, or "" if the chain
// holds no provider error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsUnconfigured reports whether err is a missing-credential failure.
func IsUnconfigured(err error) bool {
	return KindOf(err) == KindUnconfigured
}
