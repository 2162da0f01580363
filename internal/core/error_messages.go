package core

// # Error Codes Reference
//
// Technical errors are mapped to user-friendly messages with a code that
// users can quote to support. Codes are grouped by category:
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL002 - Non-numeric column: A measurement column contains non-numeric values
//	         Patterns: "non-numeric column"
//	VAL004 - Missing column: Required columns are missing from the CSV
//	         Patterns: "missing required columns"
//	VAL007 - Empty dataset: The CSV has a header but no data rows
//	         Patterns: "empty dataset"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large           Patterns: "file too large"
//	FILE002 - Invalid CSV              Patterns: "invalid csv"
//	FILE004 - No file                  Patterns: "no file provided"
//	FILE005 - Empty file               Patterns: "empty file"
//	FILE006 - Wrong file type          Patterns: "only .csv files"
//
// # Dataset Errors (DS001-DS099)
//
//	DS001 - Dataset not found (also returned for datasets owned by someone else)
//	        Patterns: "dataset not found"
//
// # Auth Errors (AUTH001-AUTH099)
//
//	AUTH001 - Invalid credentials       Patterns: "invalid credentials"
//	AUTH002 - User exists               Patterns: "user already exists"
//	AUTH003 - Credentials required      Patterns: "username and password required"
//	AUTH004 - Invalid or missing token  Patterns: "invalid token", "missing token"
//	AUTH005 - Password too long         Patterns: "password too long"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy                Patterns: "too many uploads"
//	UPL004 - Request cancelled          Patterns: "context canceled"
//	UPL005 - Request timeout            Patterns: "context deadline exceeded"
//
// # Report Errors (REP001-REP099)
//
//	REP001 - Report rendering failed    Patterns: "render report"
//
// # Database Errors (DB001-DB099)
//
//	DB004 - Connection refused          Patterns: "connection refused"
//	DB006 - Timeout                     Patterns: "timeout"
//	DB007 - Deadlock                    Patterns: "deadlock"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests         Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Validation
	{
		pattern: "non-numeric column",
		msg: UserMessage{
			Message: "A measurement column contains non-numeric values",
			Action:  "Flowrate, Pressure and Temperature must be plain numbers in every row",
			Code:    "VAL002",
		},
	},
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the CSV",
			Action:  "Include Equipment Name, Type, Flowrate, Pressure and Temperature",
			Code:    "VAL004",
		},
	},
	{
		pattern: "empty dataset",
		msg: UserMessage{
			Message: "The CSV has no data rows",
			Action:  "Add at least one equipment row below the header",
			Code:    "VAL007",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "only .csv files",
		msg: UserMessage{
			Message: "Only CSV files are allowed",
			Action:  "Upload a file with a .csv extension",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "File required",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},

	// Datasets
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "It may have been replaced by a newer upload; check your history",
			Code:    "DS001",
		},
	},

	// Auth
	{
		pattern: "invalid credentials",
		msg: UserMessage{
			Message: "Invalid credentials",
			Action:  "Check your username and password",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "user already exists",
		msg: UserMessage{
			Message: "User already exists",
			Action:  "Choose a different username or log in",
			Code:    "AUTH002",
		},
	},
	{
		pattern: "username and password required",
		msg: UserMessage{
			Message: "Username and password required",
			Action:  "Provide both a username and a password",
			Code:    "AUTH003",
		},
	},
	{
		pattern: "invalid token",
		msg: UserMessage{
			Message: "Authentication required",
			Action:  "Log in again to get a new token",
			Code:    "AUTH004",
		},
	},
	{
		pattern: "missing token",
		msg: UserMessage{
			Message: "Authentication required",
			Action:  "Send your token in the Authorization header",
			Code:    "AUTH004",
		},
	},

	{
		pattern: "password too long",
		msg: UserMessage{
			Message: "Password is too long",
			Action:  "Use a password of at most 72 bytes",
			Code:    "AUTH005",
		},
	},

	// Report. Ahead of the context patterns: a render cut short by
	// cancellation is still a report failure.
	{
		pattern: "render report",
		msg: UserMessage{
			Message: "The report could not be generated",
			Action:  "Please try again; your dataset is unaffected",
			Code:    "REP001",
		},
	},

	// Upload
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
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

	// Database
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
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

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
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

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
