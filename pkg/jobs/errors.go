package jobs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Code is the numeric identifier carried by every error surfaced to callers
type Code int

const (
	CodeInvalidRequestType       Code = 100
	CodeNullInputDescriptor      Code = 101
	CodeJobAlreadyRunning        Code = 102
	CodeInvalidJobID             Code = 103
	CodeJobDefinitionNotFound    Code = 104
	CodeServerRequestMalformed   Code = 105
	CodeFactoryConstructionError Code = 106
	CodeInvalidCategoryOrType    Code = 107
	CodeUnexpectedError          Code = 199
)

var codeNames = map[Code]string{
	CodeInvalidRequestType:       "InvalidRequestType",
	CodeNullInputDescriptor:      "NullInputDescriptor",
	CodeJobAlreadyRunning:        "JobAlreadyRunning",
	CodeInvalidJobID:             "InvalidJobId",
	CodeJobDefinitionNotFound:    "JobDefinitionNotFound",
	CodeServerRequestMalformed:   "ServerRequestMalformed",
	CodeFactoryConstructionError: "FactoryConstructionError",
	CodeInvalidCategoryOrType:    "InvalidCategoryOrType",
	CodeUnexpectedError:          "UnexpectedError",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// Error is a structured error with a numeric code and a fixed-order argument list
type Error struct {
	Code Code
	Args []string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.String())
	b.WriteByte('(')
	b.WriteString(strings.Join(e.Args, ", "))
	b.WriteByte(')')
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so callers can write
// errors.Is(err, jobs.ErrJobAlreadyRunning)
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons
var (
	ErrInvalidRequestType     = &Error{Code: CodeInvalidRequestType}
	ErrNullInputDescriptor    = &Error{Code: CodeNullInputDescriptor}
	ErrJobAlreadyRunning      = &Error{Code: CodeJobAlreadyRunning}
	ErrInvalidJobID           = &Error{Code: CodeInvalidJobID}
	ErrJobDefinitionNotFound  = &Error{Code: CodeJobDefinitionNotFound}
	ErrServerRequestMalformed = &Error{Code: CodeServerRequestMalformed}
	ErrFactoryConstruction    = &Error{Code: CodeFactoryConstructionError}
	ErrInvalidCategoryOrType  = &Error{Code: CodeInvalidCategoryOrType}
	ErrUnexpected             = &Error{Code: CodeUnexpectedError}
)

func InvalidRequestType(requestType string) *Error {
	return &Error{Code: CodeInvalidRequestType, Args: []string{requestType}}
}

func NullInputDescriptor() *Error {
	return &Error{Code: CodeNullInputDescriptor}
}

func JobAlreadyRunning() *Error {
	return &Error{Code: CodeJobAlreadyRunning}
}

func InvalidJobID(id int64) *Error {
	return &Error{Code: CodeInvalidJobID, Args: []string{strconv.FormatInt(id, 10)}}
}

func JobDefinitionNotFound(category, jobType string, cause error) *Error {
	return &Error{Code: CodeJobDefinitionNotFound, Args: []string{category, jobType}, Err: cause}
}

func ServerRequestMalformed(field, detail string) *Error {
	return &Error{Code: CodeServerRequestMalformed, Args: []string{field, detail}}
}

func FactoryConstructionError(implID string, cause error) *Error {
	return &Error{Code: CodeFactoryConstructionError, Args: []string{implID}, Err: cause}
}

func InvalidCategoryOrType(category, jobType string) *Error {
	return &Error{Code: CodeInvalidCategoryOrType, Args: []string{category, jobType}}
}

func UnexpectedError(cause error) *Error {
	detail := "unknown"
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Code: CodeUnexpectedError, Args: []string{detail}, Err: cause}
}

// AsError returns err as a classified *Error, wrapping anything else as UnexpectedError
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return UnexpectedError(err)
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
