package pid

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

// File is a held PID file.
type File struct {
	path string
	pid  int
}

// Acquire writes the current process ID to path. It fails with
// ErrAlreadyRunning if path names a live process. A stale or unreadable
// file is replaced.
func Acquire(path string) (*File, error) {
	errFactory := errors.New()
	pid := os.Getpid()

	if running, other := holder(path); running && other != pid {
		return nil, errFactory.WithData(errors.ErrAlreadyRunning, struct {
			Path string
			PID  int
		}{
			Path: path,
			PID:  other,
		})
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}

	return &File{path: path, pid: pid}, nil
}

// holder reports whether path holds the PID of a live process.
func holder(path string) (bool, int) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
	if err != nil || pid <= 0 {
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, pid
	}

	return process.Signal(syscall.Signal(0)) == nil, pid
}

// Path is the location of the PID file.
func (f *File) Path() string {
	return f.path
}

// Release removes the PID file if it still belongs to this process.
func (f *File) Release() error {
	bytes, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.New().Wrap(errors.ErrInternal, err)
	}
	if strings.TrimSpace(string(bytes)) != strconv.Itoa(f.pid) {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
