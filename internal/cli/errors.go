// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitInterrupted   = 130
)

// ErrConfig marks failures to load the config file.
var ErrConfig = errors.New("configuration error")

// ErrConfirmationRequired is returned by destructive commands run
// without --yes.
var ErrConfirmationRequired = errors.New("refusing to continue without --yes")

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		apiErr   *cloud.APIError
		argErr   *commands.ArgError
		validErr config.ValidateErrors
		ttyErr   *TTYRequiredError
	)
	switch {
	case errors.Is(err, cloud.ErrAborted):
		return ExitInterrupted
	case errors.Is(err, ErrConfig), errors.Is(err, cloud.ErrNotConfigured), errors.As(err, &validErr):
		return ExitConfigError
	case errors.As(err, &apiErr):
		if apiErr.IsAuth() {
			return ExitAuthError
		}
		if apiErr.Status == 0 {
			return ExitNetworkError
		}
		return ExitGeneralError
	case errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	case errors.As(err, &argErr), errors.As(err, &ttyErr), errors.Is(err, ErrConfirmationRequired):
		return ExitUsageError
	}
	return ExitGeneralError
}

// keyHint suggests a fix for API key errors.
func keyHint(err error) string {
	var apiErr *cloud.APIError
	switch {
	case errors.Is(err, cloud.ErrNotConfigured):
		return "Set your key with: rigchat config set-key"
	case errors.As(err, &apiErr) && apiErr.IsAuth():
		return "The API key was rejected. Update it with: rigchat config set-key"
	}
	return ""
}

// DisplayError writes err, and a hint when one applies, to w.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if hint := keyHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}
