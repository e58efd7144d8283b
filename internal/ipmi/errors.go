package ipmi

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

const (
	ErrCommandFailed      = errors.ErrCommandFailed
	ErrToolNotFound       = errors.ErrToolNotFound
	ErrEndpointIncomplete = errors.ErrEndpointIncomplete
)

// ExitStatus describes a tool invocation that ran but exited nonzero.
type ExitStatus struct {
	Code   int
	Stderr string
}

func (s ExitStatus) String() string {
	stderr := strings.TrimSpace(s.Stderr)
	if stderr == "" {
		return fmt.Sprintf("exit status %d", s.Code)
	}

	return fmt.Sprintf("exit status %d: %s", s.Code, stderr)
}

// ExitStatusOf extracts the exit status carried by a command_failed error.
func ExitStatusOf(err error) (ExitStatus, bool) {
	var appErr errors.Error
	if !errors.As(err, &appErr) || appErr.Code() != ErrCommandFailed {
		return ExitStatus{}, false
	}
	status, ok := appErr.GetData().(ExitStatus)

	return status, ok
}

// ToolLookup describes a tool path that could not be resolved or executed.
type ToolLookup struct {
	Path  string
	Cause string
}

func (l ToolLookup) String() string {
	return fmt.Sprintf("%s: %s", l.Path, l.Cause)
}
