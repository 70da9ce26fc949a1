package core

// error_messages.go maps technical errors to user-facing messages with
// stable codes that users can quote to support.
//
// # Codes
//
//	FILE001  file too large            FILE004  no file provided
//	FILE002  invalid CSV (ParseError)  FILE006  import file unreadable (IOError)
//
//	VAL007   row field count differs from header (MalformedRowError)
//	VAL008   batch size not positive (ErrInvalidBatchSize)
//
//	DB001    duplicate key             DB005    connection reset
//	DB002    unique constraint         DB006    timeout
//	DB003    foreign key               DB007    deadlock
//	DB004    connection refused        DB008    store busy or closed
//
//	IMP001   too many concurrent imports (ErrTooManyImports)
//	IMP002   store rejected a batch after earlier ones committed (WriteError)
//	IMP003   import cancelled or timed out
//
//	RATE001  too many requests
//	ERR000   anything else; check the logs for the technical error
//
// Typed pipeline errors are matched first with errors.As/errors.Is, so a
// WriteError whose cause mentions "timeout" still maps to IMP002. Anything
// left is matched against message patterns, case-insensitively, first match
// wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgTooManyImports = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgPartialWrite = UserMessage{
		Message: "The import stopped after some records were saved",
		Action:  "Check the imported count before importing the remaining rows",
		Code:    "IMP002",
	}
	msgImportAborted = UserMessage{
		Message: "The import was cancelled or timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "IMP003",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Check for unbalanced quotes in the file",
		Code:    "FILE002",
	}
	msgUnreadable = UserMessage{
		Message: "The import file could not be read",
		Action:  "Check that the file exists and is readable",
		Code:    "FILE006",
	}
	msgMalformedRow = UserMessage{
		Message: "A row has a different number of fields than the header",
		Action:  "Make every row have one value per header column",
		Code:    "VAL007",
	}
	msgInvalidBatchSize = UserMessage{
		Message: "Batch size must be a positive number",
		Action:  "Omit batchSize or pass a value greater than zero",
		Code:    "VAL008",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are tried in order after the typed checks in MapError.
var errorPatterns = []errorPattern{
	// Database constraints
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Import into an empty collection or purge it first",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Contact support; the document table has unexpected constraints",
			Code:    "DB003",
		},
	},

	// Connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The document store is busy",
			Action:  "Please try again",
			Code:    "DB008",
		},
	},
	{
		pattern: "store closed",
		msg: UserMessage{
			Message: "The document store is shutting down",
			Action:  "Please try again once the service restarts",
			Code:    "DB008",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg:     msgFileTooLarge,
	},
	{
		pattern: "request body too large",
		msg:     msgFileTooLarge,
	},
	{
		pattern: "invalid csv",
		msg:     msgInvalidCSV,
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE004",
		},
	},

	// Requests
	{
		pattern: "too many concurrent imports",
		msg:     msgTooManyImports,
	},
	{
		pattern: "context canceled",
		msg:     msgImportAborted,
	},
	{
		pattern: "context deadline exceeded",
		msg:     msgImportAborted,
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := svc.Import(ctx, req)
//	msg := MapError(err)
//	// for a *MalformedRowError, msg.Code == "VAL007"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTypedError(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTypedError(err error) (UserMessage, bool) {
	var (
		writeErr     *WriteError
		parseErr     *ParseError
		malformedErr *MalformedRowError
		ioErr        *IOError
	)

	switch {
	case errors.Is(err, ErrTooManyImports):
		return msgTooManyImports, true
	case errors.Is(err, ErrInvalidBatchSize):
		return msgInvalidBatchSize, true
	case errors.As(err, &malformedErr):
		return msgMalformedRow, true
	case errors.As(err, &parseErr):
		return msgInvalidCSV, true
	case errors.As(err, &writeErr):
		return msgPartialWrite, true
	case errors.As(err, &ioErr):
		return msgUnreadable, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return msgImportAborted, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
