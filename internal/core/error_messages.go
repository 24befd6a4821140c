package core

// error_messages.go maps errors to operator-facing messages with support codes.
//
// # Error Codes Reference
//
// Typed import errors are matched first with errors.As/errors.Is, so the
// message can name the offending row and value. Everything else falls through
// to case-insensitive substring patterns over the error text, which is how
// driver and network errors are recognised.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Missing column: header lacks tuotekoodi, maara or yksikko
//	IMP002 - Unknown product: no product with the row's code
//	IMP003 - Ambiguous product: several products share the row's code
//	IMP004 - Unknown unit: no unit of measure with the row's name
//	IMP005 - Ambiguous unit: several units share the row's name
//	IMP006 - Invalid quantity: maara is empty or not a number
//	IMP007 - Picking not found
//	IMP008 - Picking locked: picking is done or cancelled
//	IMP009 - No data rows: header present but nothing below it
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unreadable spreadsheet (corrupt workbook, bad base64, no header)
//	FILE003 - Unsupported format (.xls)
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key            Patterns: "duplicate key"
//	DB002 - Unique constraint        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key              Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused       Patterns: "connection refused"
//	DB005 - Connection reset         Patterns: "connection reset"
//	DB006 - Timeout                  Patterns: "timeout"
//	DB007 - Deadlock                 Patterns: "deadlock"
//
// # Request Errors (UPL001-UPL099)
//
//	UPL002 - System busy: too many imports in progress
//	UPL004 - Request cancelled       Patterns: "context canceled"
//	UPL005 - Request timeout         Patterns: "context deadline exceeded"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error when an operator reports ERR000.

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

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Check that the picking was not imported twice",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check that the locations and company configured for imports exist",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check that the locations and company configured for imports exist",
			Code:    "DB003",
		},
	},
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
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
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
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
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
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an .xlsx or .csv file to upload",
			Code:    "FILE004",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// Typed import errors are checked first; then the error text is searched for
// known patterns. Unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
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

func mapTyped(err error) (UserMessage, bool) {
	var (
		missing       *MissingColumnError
		noProduct     *UnresolvedProductError
		dupProduct    *AmbiguousProductError
		noUnit        *UnresolvedUnitError
		dupUnit       *AmbiguousUnitError
		badQty        *InvalidQuantityError
		noPicking     *PickingNotFoundError
		lockedPicking *PickingLockedError
		decodeErr     *DecodeError
	)

	switch {
	case errors.As(err, &missing):
		return UserMessage{
			Message: fmt.Sprintf("Missing required columns: %s", strings.Join(missing.Columns, ", ")),
			Action:  "Add the columns to the first row of the sheet or start from the template",
			Code:    "IMP001",
		}, true
	case errors.As(err, &noProduct):
		return UserMessage{
			Message: fmt.Sprintf("Line %d: no product with code %q", noProduct.Line, noProduct.Code),
			Action:  "Fix the product code (tuotekoodi) and upload the file again",
			Code:    "IMP002",
		}, true
	case errors.As(err, &dupProduct):
		return UserMessage{
			Message: fmt.Sprintf("Line %d: several products share code %q", dupProduct.Line, dupProduct.Code),
			Action:  "Make the product code unique in the product catalogue",
			Code:    "IMP003",
		}, true
	case errors.As(err, &noUnit):
		return UserMessage{
			Message: fmt.Sprintf("Line %d: no unit of measure named %q", noUnit.Line, noUnit.Name),
			Action:  "Fix the unit (yksikko) and upload the file again",
			Code:    "IMP004",
		}, true
	case errors.As(err, &dupUnit):
		return UserMessage{
			Message: fmt.Sprintf("Line %d: several units of measure named %q", dupUnit.Line, dupUnit.Name),
			Action:  "Make the unit name unique in the unit catalogue",
			Code:    "IMP005",
		}, true
	case errors.As(err, &badQty):
		return UserMessage{
			Message: fmt.Sprintf("Line %d: invalid quantity %q", badQty.Line, badQty.Value),
			Action:  "Enter the quantity (maara) as a plain number, e.g. 10 or 2,5",
			Code:    "IMP006",
		}, true
	case errors.As(err, &noPicking):
		return UserMessage{
			Message: fmt.Sprintf("Picking %d not found", noPicking.PickingID),
			Action:  "Check the picking and try again",
			Code:    "IMP007",
		}, true
	case errors.As(err, &lockedPicking):
		return UserMessage{
			Message: fmt.Sprintf("Picking %d is %s and cannot receive new lines", lockedPicking.PickingID, lockedPicking.State),
			Action:  "Import into an open picking instead",
			Code:    "IMP008",
		}, true
	case errors.Is(err, ErrNoDataRows):
		return UserMessage{
			Message: "The sheet has a header row but no data rows",
			Action:  "Add at least one line below the header",
			Code:    "IMP009",
		}, true
	case errors.Is(err, ErrTooManyImports):
		return UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		}, true
	case errors.Is(err, ErrFileTooLarge):
		return UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the lines into several smaller files",
			Code:    "FILE001",
		}, true
	case errors.Is(err, ErrUnsupported):
		return UserMessage{
			Message: "Legacy .xls workbooks are not supported",
			Action:  "Save the file as .xlsx or .csv and upload it again",
			Code:    "FILE003",
		}, true
	case errors.Is(err, ErrEmptyFile):
		return UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a spreadsheet with a header row and data rows",
			Code:    "FILE005",
		}, true
	case errors.As(err, &decodeErr):
		return UserMessage{
			Message: "The file could not be read as a spreadsheet",
			Action:  "Upload an .xlsx or .csv file, for example the downloadable template",
			Code:    "FILE002",
		}, true
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		}, true
	case errors.Is(err, context.Canceled):
		return UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		}, true
	}
	return UserMessage{}, false
}
