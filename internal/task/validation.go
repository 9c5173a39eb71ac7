package task

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dkotenko/taskflow/pkg/cerr"
)

const (
	maxTagLength        = 50
	maxExecutionMinutes = 480
)

// Tags allow letters in any script (Cyrillic included), digits, hyphen
// and underscore.
var tagPattern = regexp.MustCompile(`^[\p{L}0-9_-]+$`)

// ValidateTag checks a task tag. An empty or whitespace-only tag is valid;
// the task simply carries none.
func ValidateTag(tag string) error {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) > maxTagLength {
		return cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("tag must be at most %d characters", maxTagLength), nil)
	}
	if !tagPattern.MatchString(trimmed) {
		return cerr.NewError(cerr.InvalidArgument,
			"tag may only contain letters, digits, hyphens and underscores", nil)
	}
	return nil
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return cerr.NewError(cerr.InvalidArgument, "title must not be empty", nil)
	}
	return nil
}

// ValidateExecutionDuration checks the per-task execution window in minutes.
// Zero means "not set" and is valid.
func ValidateExecutionDuration(minutes int) error {
	if minutes == 0 {
		return nil
	}
	if minutes < 0 || minutes > maxExecutionMinutes {
		return cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("execution duration must be between 1 and %d minutes", maxExecutionMinutes), nil)
	}
	return nil
}
