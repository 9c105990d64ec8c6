package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryProtocol Category = "protocol"
	CategoryChannel  Category = "channel"
	CategoryServer   Category = "server"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ResizeError is a structured error with a code, an explanation and a hint.
type ResizeError struct {
	// Code is a unique error identifier (e.g., "E060").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location points into a file, for configuration errors.
	Location *Location

	// Context contains the lines around Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ResizeError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ResizeError) Unwrap() error {
	return e.Wrapped
}

// WithLocation points the error at a file position and loads the lines
// around it.
func (e *ResizeError) WithLocation(file string, line, column int) *ResizeError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ResizeError) WithSuggestion(s string) *ResizeError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ResizeError) WithDetail(d string) *ResizeError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *ResizeError) Wrap(err error) *ResizeError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a ResizeError from a registered error code.
func New(code string) *ResizeError {
	template, ok := registry[code]
	if !ok {
		return &ResizeError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ResizeError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new ResizeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ResizeError {
	return &ResizeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ResizeError. An error that already
// is (or wraps) a ResizeError is returned as that ResizeError.
func FromError(err error, code string) *ResizeError {
	if err == nil {
		return nil
	}
	var re *ResizeError
	if stderrors.As(err, &re) {
		return re
	}
	return New(code).Wrap(err)
}
