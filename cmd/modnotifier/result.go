package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	appErrors "modnotifier/internal/errors"
	"modnotifier/internal/notify"
	"modnotifier/internal/update"
)

// errCheckFailed is returned after a failed check has already been explained
// to the user.
var errCheckFailed = errors.New("update check failed")

// checkReport is the structured form of a check result.
type checkReport struct {
	Status  string          `json:"status" yaml:"status"`
	Code    string          `json:"code,omitempty" yaml:"code,omitempty"`
	Error   string          `json:"error,omitempty" yaml:"error,omitempty"`
	Updates []update.Record `json:"updates" yaml:"updates"`
}

func reportFor(result update.Result) checkReport {
	if result.Failed() {
		return checkReport{
			Status:  "failed",
			Code:    string(appErrors.CodeOf(result.Err)),
			Error:   result.Err.Error(),
			Updates: []update.Record{},
		}
	}
	updates := result.Updates
	if updates == nil {
		updates = []update.Record{}
	}
	status := "up-to-date"
	if len(updates) > 0 {
		status = "updates-available"
	}
	return checkReport{Status: status, Updates: updates}
}

// messageFor returns the message describing a successful result.
func messageFor(result update.Result) notify.Message {
	if len(result.Updates) == 0 {
		return notify.AllUpToDate()
	}
	return notify.UpdatesAvailable(result.Updates, nil)
}

// handleCheckResult explains a failed check on w and reports whether the
// command should exit with an error.
func handleCheckResult(w io.Writer, result update.Result) bool {
	if !result.Failed() {
		return false
	}
	switch appErrors.CodeOf(result.Err) {
	case appErrors.CodeAuthMissing:
		_, _ = fmt.Fprint(w, formatAuthMissingMessage())
	case appErrors.CodeNetworkFailed:
		_, _ = fmt.Fprint(w, formatNetworkFailedMessage(result.Err))
	case appErrors.CodeProtocolError:
		_, _ = fmt.Fprint(w, formatProtocolErrorMessage(result.Err))
	default:
		_, _ = fmt.Fprintf(w, "Error: update check failed: %v\n", result.Err)
	}
	return true
}

func formatAuthMissingMessage() string {
	return `Error: no package registry API key is configured

Set one with either:
  modnotifier key set <api-key>
  modnotifier key import path/to/license.mjs

Or edit it interactively:
  modnotifier key edit

`
}

func formatNetworkFailedMessage(err error) string {
	return fmt.Sprintf(`Error: could not reach the package registry

%s

Troubleshooting:
  - Check your network connection
  - Verify the API key: modnotifier key show
  - Override the endpoint with --endpoint if you use a mirror

`, errorText(err))
}

func formatProtocolErrorMessage(err error) string {
	return fmt.Sprintf(`Error: the package registry sent an unexpected response

%s

Previous results are kept; try again later.

`, errorText(err))
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	text := strings.TrimSpace(err.Error())
	if text == "" {
		return "unknown error"
	}
	return text
}
