package migration

// error_messages.go maps pipeline errors to coded operator messages.
//
// # Error Codes Reference
//
// # Input Errors (INP001-INP099)
//
//	INP001 - Input missing: The dump file does not exist
//	         Action: Pass the dump path with --input or MIGRATE_INPUT
//
//	INP002 - Encoding: The declared dump encoding is not supported
//	         Action: Use latin1, utf8, cp1252 or another IANA charset name
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Configuration: One or more settings are invalid
//	         Action: Fix the listed settings in the environment or .env file
//
//	MAP001 - Mappings: The mappings file cannot be used
//	         Action: Check the YAML syntax and fee-type aliases of the file
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unknown session: No students were extracted for the session
//	         Action: Run discover to list available sessions
//
//	EXP002 - Template: The template workbook cannot be opened
//	         Action: Check the --template path points at an .xlsx file
//
//	EXP003 - Output: The output directory cannot be written
//	         Action: Check the --output path and its permissions
//
//	EXP004 - Busy: Another export holds the output directory
//	         Action: Retry once the running export has finished
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Validation: validate --strict found rejected records
//	         Action: Review validation_log.json for missing students
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Cancelled: The run was cancelled
//	REQ002 - Timeout: The run exceeded its deadline
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the log for the underlying error
//
// # Matching
//
// A rule matches when the error wraps its sentinel (errors.Is) or, failing
// that, when the lowercased message contains its pattern. The first matching
// rule wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sdvmigrate/internal/config"
	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/export"
	"github.com/JonMunkholm/sdvmigrate/internal/mapping"
)

// UserMessage provides operator-facing error information with guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// errorRule matches an error by sentinel or message pattern.
type errorRule struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorRules = []errorRule{
	{
		target:  dump.ErrInputNotFound,
		pattern: "input file not found",
		msg: UserMessage{
			Message: "Input dump file not found",
			Action:  "Pass the dump path with --input or MIGRATE_INPUT",
			Code:    "INP001",
		},
	},
	{
		target:  dump.ErrUnknownEncoding,
		pattern: "unsupported encoding",
		msg: UserMessage{
			Message: "Dump encoding is not supported",
			Action:  "Use latin1, utf8, cp1252 or another IANA charset name",
			Code:    "INP002",
		},
	},
	{
		target:  config.ErrInvalidConfig,
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Configuration is invalid",
			Action:  "Fix the listed settings in the environment or .env file",
			Code:    "CFG001",
		},
	},
	{
		target:  mapping.ErrInvalidMappings,
		pattern: "invalid mappings",
		msg: UserMessage{
			Message: "Mappings file cannot be used",
			Action:  "Check the YAML syntax and fee-type aliases of the file",
			Code:    "MAP001",
		},
	},
	{
		target:  export.ErrUnknownSession,
		pattern: "session not found",
		msg: UserMessage{
			Message: "No students were extracted for that session",
			Action:  "Run discover to list available sessions",
			Code:    "EXP001",
		},
	},
	{
		target:  export.ErrTemplate,
		pattern: "template workbook",
		msg: UserMessage{
			Message: "Template workbook cannot be opened",
			Action:  "Check the --template path points at an .xlsx file",
			Code:    "EXP002",
		},
	},
	{
		target:  export.ErrBusy,
		pattern: "export already running",
		msg: UserMessage{
			Message: "Another export is still running",
			Action:  "Retry once the running export has finished",
			Code:    "EXP004",
		},
	},
	{
		target:  ErrOutput,
		pattern: "create output dir",
		msg: UserMessage{
			Message: "Output directory cannot be written",
			Action:  "Check the --output path and its permissions",
			Code:    "EXP003",
		},
	},
	{
		pattern: "validation reported errors",
		msg: UserMessage{
			Message: "Some records failed validation",
			Action:  "Review validation_log.json for missing students",
			Code:    "VAL001",
		},
	},
	{
		target:  context.Canceled,
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The run was cancelled",
			Action:  "Start the command again when ready",
			Code:    "REQ001",
		},
	},
	{
		target:  context.DeadlineExceeded,
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The run timed out",
			Action:  "Increase the server write timeout or export one session at a time",
			Code:    "REQ002",
		},
	},
}

// defaultMessage is returned when no rule matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for the underlying error",
	Code:    "ERR000",
}

// MapError converts an error to an operator message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, r := range errorRules {
		if r.target != nil && errors.Is(err, r.target) {
			return r.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, r := range errorRules {
		if strings.Contains(errStr, r.pattern) {
			return r.msg
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

// IsUserFacing reports whether err maps to a specific code rather than
// ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its operator message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
