package cerr

import "github.com/dkotenko/taskflow/pkg/clog"

//go:generate go tool stringer -type=Code -output=code_string.go code.go
type Code int

const (
	OK                 = Code(0)
	Canceled           = Code(1)
	Unknown            = Code(2)
	InvalidArgument    = Code(3)
	DeadlineExceeded   = Code(4)
	NotFound           = Code(5)
	AlreadyExists      = Code(6)
	PermissionDenied   = Code(7)
	ResourceExhausted  = Code(8)
	FailedPrecondition = Code(9)
	Aborted            = Code(10)
	OutOfRange         = Code(11)
	Unimplemented      = Code(12)
	Internal           = Code(13)
	Unavailable        = Code(14)
	DataLoss           = Code(15)
	Unauthenticated    = Code(16)
)

// Level maps a code to the log level its occurrences should be recorded at.
// Expected user-facing conditions stay at info; genuine faults are errors.
func (c Code) Level() clog.Level {
	switch c {
	case OK:
		return clog.LevelInfo
	case Canceled:
		return clog.LevelInfo
	case Unknown:
		return clog.LevelError
	case InvalidArgument:
		return clog.LevelInfo
	case DeadlineExceeded:
		return clog.LevelInfo
	case NotFound:
		return clog.LevelInfo
	case AlreadyExists:
		return clog.LevelInfo
	case PermissionDenied:
		return clog.LevelInfo
	case ResourceExhausted:
		return clog.LevelError
	case FailedPrecondition:
		return clog.LevelInfo
	case Aborted:
		return clog.LevelInfo
	case OutOfRange:
		return clog.LevelInfo
	case Unimplemented:
		return clog.LevelError
	case Internal:
		return clog.LevelError
	case Unavailable:
		return clog.LevelError
	case DataLoss:
		return clog.LevelError
	case Unauthenticated:
		return clog.LevelInfo
	}
	return clog.LevelError
}
