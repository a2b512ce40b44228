// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAborted is returned by blocking calls whose context was cancelled.
	ErrAborted = errors.New("request aborted")
)

// ConfigError reports a missing or unusable local setting. No request was sent.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.Message
}

// Is matches ErrNotConfigured for a missing API key.
func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured && e.Field == "apiKey"
}

// MissingKeyError is the ConfigError reported when no API key is set.
func MissingKeyError() *ConfigError {
	return &ConfigError{Field: "apiKey", Message: "please configure an API key first"}
}

// APIError is a failed request: a non-2xx response, or a transport failure
// (Status 0) that was not caused by cancellation.
type APIError struct {
	Status  int
	Message string
	Err     error
}

// Error returns the server's message, or the status fallback when the
// server sent none.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the transport error, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsAuth reports whether the server rejected the credential.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// ParseError is a single stream frame that could not be decoded. Frames with
// parse errors are skipped; they never end a stream.
type ParseError struct {
	Frame string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed stream frame: %v", e.Err)
}

// Unwrap returns the decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// apiErrorResponse is the JSON error body returned by the endpoint. Servers
// send code as either a string or a number.
type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// errorFromResponse maps a non-2xx response to an APIError, preferring the
// server's error.message over the bare status.
func errorFromResponse(status int, body []byte) *APIError {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	if apiErr.Error.Message != "" {
		return &APIError{Status: status, Message: apiErr.Error.Message}
	}
	return &APIError{Status: status, Message: fmt.Sprintf("API request failed: %d", status)}
}

func transportError(err error) *APIError {
	return &APIError{Message: "network request failed: " + err.Error(), Err: err}
}
