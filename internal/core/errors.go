package core

// errors.go defines the fatal error kinds of the pipeline and maps technical
// errors to user-facing messages with stable codes for support reference.
//
// DecodeError and HeaderError abort a call before any row is processed;
// row-level problems are RowError values accumulated in reports instead.

import (
	"errors"
	"fmt"
	"strings"
)

// DecodeError means no candidate encoding decoded the file cleanly.
// Nothing is salvageable from the upload.
type DecodeError struct {
	Attempted []string // candidate encoding names, in trial order
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode file (tried %s)", strings.Join(e.Attempted, ", "))
}

// HeaderError means a required canonical field is absent after header
// normalization on the commit path.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// UserMessage is a user-facing rendering of an error.
type UserMessage struct {
	Code    string
	Message string
	Action  string
}

// MapError converts a technical error into a user-friendly message.
// Codes: FILE0xx file/format problems, DB0xx storage problems, GEN001 fallback.
func MapError(err error) UserMessage {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return UserMessage{
			Code:    "FILE001",
			Message: "File encoding not recognized",
			Action:  "Save the file as UTF-8 or EUC-KR and upload again",
		}
	}

	var headerErr *HeaderError
	if errors.As(err, &headerErr) {
		return UserMessage{
			Code:    "FILE002",
			Message: "Required columns are missing: " + strings.Join(headerErr.Missing, ", "),
			Action:  "Add the missing columns to the header row",
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return UserMessage{
			Code:    "DB001",
			Message: "A record with this ID already exists",
			Action:  "Enable upsert or remove the duplicate rows",
		}
	case strings.Contains(msg, "foreign key"):
		return UserMessage{
			Code:    "DB002",
			Message: "A referenced record does not exist",
			Action:  "Check category IDs against existing categories",
		}
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return UserMessage{
			Code:    "DB003",
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
		}
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return UserMessage{
			Code:    "DB004",
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
		}
	}

	return UserMessage{
		Code:    "GEN001",
		Message: "An unexpected error occurred",
		Action:  "Please try again; contact support with this code if it persists",
	}
}
