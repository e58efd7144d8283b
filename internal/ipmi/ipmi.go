// Package ipmi runs the external ipmitool binary against a management
// endpoint. It does not speak IPMI itself.
package ipmi

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

const DefaultInterface = "lanplus"

// Runner executes one tool invocation against an endpoint snapshot.
type Runner interface {
	Execute(ctx context.Context, cfg endpoint.Config, args ...string) (string, error)
}

// Tool is the Runner backed by a real subprocess per call.
type Tool struct {
	iface  string
	logger logger.Logger
}

func NewTool(iface string, log logger.Logger) *Tool {
	if iface == "" {
		iface = DefaultInterface
	}
	if log == nil {
		log = logger.Default()
	}

	return &Tool{iface: iface, logger: log}
}

// SensorListArgs lists every sensor with its reading.
func SensorListArgs() []string {
	return []string{"sensor"}
}

// SetFanDutyArgs is the raw command that sets all chassis fans to duty percent.
func SetFanDutyArgs(duty uint8) []string {
	return []string{"raw", "0x2e", "0x30", "00", "00", fmt.Sprintf("%02x", duty)}
}

// ConnectionArgs returns the out-of-band connection flags for cfg.
func ConnectionArgs(iface string, cfg endpoint.Config) []string {
	return []string{"-I", iface, "-H", cfg.Address, "-U", cfg.Username, "-P", cfg.Password}
}

// Execute runs the tool and returns its stdout. The call blocks until the
// process exits; timeouts are whatever the tool itself enforces.
func (t *Tool) Execute(ctx context.Context, cfg endpoint.Config, args ...string) (string, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return "", err
	}

	path, err := exec.LookPath(cfg.ToolPath)
	if err != nil {
		return "", errFactory.WithData(ErrToolNotFound, ToolLookup{Path: cfg.ToolPath, Cause: err.Error()})
	}

	argv := append(ConnectionArgs(t.iface, cfg), args...)
	cmd := exec.CommandContext(ctx, path, argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug().
		Str("tool", path).
		Str("host", cfg.Address).
		Str("user", cfg.Username).
		Str("command", strings.Join(args, " ")).
		Msg("Running IPMI command")

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", errFactory.WithData(ErrCommandFailed, ExitStatus{
				Code:   exitErr.ExitCode(),
				Stderr: stderr.String(),
			})
		}

		return "", errFactory.WithData(ErrToolNotFound, ToolLookup{Path: path, Cause: err.Error()})
	}

	return stdout.String(), nil
}
