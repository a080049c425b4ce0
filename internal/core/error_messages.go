// Package core validates submission files.
//
// # Error Codes Reference
//
// This file defines user-facing messages with codes for support reference.
// Load failures carry their code in LoadError.Code; failing checks carry
// theirs in CheckResult.Code. Other errors are mapped from their text.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum size limit
//	          Action: Remove unused columns or split the file
//	          Patterns: "file too large"
//
//	FILE005 - Empty file: The file has no header row
//	          Action: Add the header line timestamp,labels
//	          Patterns: "empty file"
//
//	FILE002 - Invalid CSV: File could not be parsed as delimited text
//	          Action: Ensure rows have no more fields than the header and quotes are balanced
//	          Patterns: "invalid csv"
//
//	FILE004 - Not found: The submission file does not exist
//	          Action: Check the path and try again
//	          Patterns: "source not found", "no such file"
//
//	FILE006 - Unreadable: The submission file could not be read
//	          Action: Check file permissions
//	          Patterns: "source unreadable"
//
// # Submission Check Failures (SUB001-SUB099)
//
//	SUB001 - Row count mismatch
//	SUB002 - Missing timestamp column
//	SUB003 - Duplicate timestamps
//	SUB004 - Wrong column names or order
//
// # Request Errors (REQ001-REQ099, UPL002-UPL005)
//
//	REQ001 - Negative expected rows
//	         Patterns: "expected rows must be non-negative"
//	REQ002 - Invalid expected rows
//	         Patterns: "invalid expected rows"
//	REQ003 - Invalid delimiter
//	         Patterns: "invalid delimiter"
//	FILE003 - No file: No file was attached to the request
//	          Patterns: "no file provided"
//	UPL002 - System busy: Too many validations in progress
//	         Patterns: "too many concurrent validations"
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Run History Errors (RUN001-RUN099)
//
//	RUN001 - Run not found
//	         Patterns: "run not found"
//	RUN002 - Invalid run ID
//	         Patterns: "invalid run id"
//	RUN003 - History disabled
//	         Patterns: "run history is disabled"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns precede general ones.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Support codes attached to failing checks.
const (
	CodeRowCountMismatch = "SUB001"
	CodeMissingKeyColumn = "SUB002"
	CodeDuplicateKeys    = "SUB003"
	CodeColumnMismatch   = "SUB004"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// Load failure messages, shared by the error patterns and LoadError.
var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Remove unused columns or split the file",
		Code:    "FILE001",
	}
	msgEmptyFile = UserMessage{
		Message: "The file has no header row",
		Action:  "Add the header line timestamp,labels",
		Code:    "FILE005",
	}
	msgInvalidCSV = UserMessage{
		Message: "File could not be parsed as delimited text",
		Action:  "Ensure rows have no more fields than the header and quotes are balanced",
		Code:    "FILE002",
	}
	msgNotFound = UserMessage{
		Message: "The submission file does not exist",
		Action:  "Check the path and try again",
		Code:    "FILE004",
	}
	msgUnreadable = UserMessage{
		Message: "The submission file could not be read",
		Action:  "Check file permissions",
		Code:    "FILE006",
	}
)

// loadMessages maps load failure codes to their messages.
var loadMessages = map[string]UserMessage{
	msgFileTooLarge.Code: msgFileTooLarge,
	msgEmptyFile.Code:    msgEmptyFile,
	msgInvalidCSV.Code:   msgInvalidCSV,
	msgNotFound.Code:     msgNotFound,
	msgUnreadable.Code:   msgUnreadable,
}

// loadErrorCode picks the support code for a load failure. err refines a
// malformed cause; it may be nil.
func loadErrorCode(cause LoadCause, err error) string {
	switch cause {
	case CauseNotFound:
		return msgNotFound.Code
	case CauseTooLarge:
		return msgFileTooLarge.Code
	case CauseUnreadable:
		return msgUnreadable.Code
	case CauseMalformed:
		if errors.Is(err, ErrEmptyFile) {
			return msgEmptyFile.Code
		}
		return msgInvalidCSV.Code
	}
	return defaultMessage.Code
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg:     msgFileTooLarge,
	},
	{
		pattern: "empty file",
		msg:     msgEmptyFile,
	},
	{
		pattern: "invalid csv",
		msg:     msgInvalidCSV,
	},
	{
		pattern: "source not found",
		msg:     msgNotFound,
	},
	{
		pattern: "no such file",
		msg:     msgNotFound,
	},
	{
		pattern: "source unreadable",
		msg:     msgUnreadable,
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was attached",
			Action:  "Attach the submission as the 'file' form field",
			Code:    "FILE003",
		},
	},

	// Request errors
	{
		pattern: "expected rows must be non-negative",
		msg: UserMessage{
			Message: "Expected row count cannot be negative",
			Action:  "Pass zero or a positive number, or omit it to skip the row count check",
			Code:    "REQ001",
		},
	},
	{
		pattern: "invalid expected rows",
		msg: UserMessage{
			Message: "Expected row count is not a number",
			Action:  "Pass a whole number, or omit it to skip the row count check",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid delimiter",
		msg: UserMessage{
			Message: "The delimiter is not usable",
			Action:  "Pass a single character such as , or ; or the word tab",
			Code:    "REQ003",
		},
	},
	{
		pattern: "invalid run id",
		msg: UserMessage{
			Message: "The run ID is not valid",
			Action:  "Use the ID from the X-Run-ID header of a validation response",
			Code:    "RUN002",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "No validation run exists with that ID",
			Action:  "Check the ID, or validate the file again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run history is disabled",
		msg: UserMessage{
			Message: "Run history is not enabled on this server",
			Action:  "Set DATABASE_URL to keep validation runs",
			Code:    "RUN003",
		},
	},
	{
		pattern: "too many concurrent validations",
		msg: UserMessage{
			Message: "Too many validations in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
}

// checkMessages describes each failing check for support staff and renderers.
var checkMessages = map[string]UserMessage{
	CodeRowCountMismatch: {
		Message: "The submission does not have the expected number of rows",
		Action:  "Make sure there is exactly one row per test timestamp",
		Code:    CodeRowCountMismatch,
	},
	CodeMissingKeyColumn: {
		Message: "The submission has no timestamp column",
		Action:  "Add a column named timestamp (names are case-sensitive)",
		Code:    CodeMissingKeyColumn,
	},
	CodeDuplicateKeys: {
		Message: "Some timestamps appear more than once",
		Action:  "Aggregate or drop duplicate rows so each timestamp appears once",
		Code:    CodeDuplicateKeys,
	},
	CodeColumnMismatch: {
		Message: "The columns are not exactly timestamp, labels",
		Action:  "Rename, reorder or drop columns so the header is timestamp,labels",
		Code:    CodeColumnMismatch,
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A LoadError anywhere in the chain is mapped by its code, so paths and
// other user-supplied text in the message cannot change the result.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	var le *LoadError
	if errors.As(err, &le) && le != nil {
		return le.UserMessage()
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// CheckMessage returns the guidance for a failing check's code.
func CheckMessage(code string) (UserMessage, bool) {
	msg, ok := checkMessages[code]
	return msg, ok
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
