package cerr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/dkotenko/taskflow/pkg/clog"
)

type Error struct {
	Code  Code
	Msg   string // message returned to the user together with the code
	Err   error  // underlying error kept for the logs
	Stack string // stack trace, captured for error-level codes only
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if code.Level() == clog.LevelError {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or Unknown when err carries none.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return Unknown
}

// Log records err on the context and logs it at the level its code implies.
func Log(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		slog.InfoContext(ctx, "operation canceled")
		return
	}
	clog.AddError(ctx, err)
	var cerr *Error
	if errors.As(err, &cerr) {
		if cerr.Stack != "" {
			clog.AddStack(ctx, cerr.Stack)
		}
		logAt(ctx, cerr.Code.Level(), cerr.Msg)
		return
	}
	slog.ErrorContext(ctx, "unknown error")
}

func logAt(ctx context.Context, level clog.Level, msg string) {
	switch level {
	case clog.LevelDebug:
		slog.DebugContext(ctx, msg)
	case clog.LevelInfo:
		slog.InfoContext(ctx, msg)
	case clog.LevelWarn:
		slog.WarnContext(ctx, msg)
	default:
		slog.ErrorContext(ctx, msg)
	}
}
