// Package endpoint holds the live management endpoint configuration shared
// by the operator surface and the control loop.
package endpoint

import (
	"fmt"
	"strings"
	"sync"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
)

const (
	DefaultAddress  = "192.168.8.180"
	DefaultUsername = "albert"
	DefaultPassword = "admin"
	DefaultToolPath = "ipmitool"
)

// Field names one editable endpoint setting.
type Field string

const (
	FieldAddress  Field = "address"
	FieldUsername Field = "username"
	FieldPassword Field = "password"
	FieldToolPath Field = "tool_path"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldAddress, FieldUsername, FieldPassword, FieldToolPath}

// ParseField maps an operator-supplied field name to a Field.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case FieldAddress, FieldUsername, FieldPassword, FieldToolPath:
		return f, nil
	}

	return "", errors.New().WithData(errors.ErrInvalidArgument, fmt.Sprintf("unknown endpoint field %q", name))
}

// Config is a snapshot of the endpoint configuration.
type Config struct {
	Address  string
	Username string
	Password string
	ToolPath string
}

// DefaultConfig returns the endpoint used until the operator edits it.
func DefaultConfig() Config {
	return Config{
		Address:  DefaultAddress,
		Username: DefaultUsername,
		Password: DefaultPassword,
		ToolPath: DefaultToolPath,
	}
}

// Value returns the value of a single field.
func (c Config) Value(field Field) string {
	switch field {
	case FieldAddress:
		return c.Address
	case FieldUsername:
		return c.Username
	case FieldPassword:
		return c.Password
	case FieldToolPath:
		return c.ToolPath
	}

	return ""
}

// Missing returns the fields that are empty.
func (c Config) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if strings.TrimSpace(c.Value(f)) == "" {
			missing = append(missing, f)
		}
	}

	return missing
}

// Validate checks that every field needed to reach the endpoint is set.
func (c Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return errors.New().WithData(errors.ErrEndpointIncomplete, missing)
	}

	return nil
}

// String renders the configuration with the password masked.
func (c Config) String() string {
	password := ""
	if c.Password != "" {
		password = "***"
	}

	return fmt.Sprintf("%s@%s (password=%s, tool=%s)", c.Username, c.Address, password, c.ToolPath)
}

// Store guards the single live Config. Readers always observe a complete
// snapshot taken either before or after any write.
type Store struct {
	mu      sync.RWMutex
	cfg     Config
	version uint64
}

func NewStore(initial Config) *Store {
	return &Store{cfg: initial}
}

// Get returns a consistent snapshot of the configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cfg
}

// Set replaces one field. Concurrent writers resolve last-writer-wins.
func (s *Store) Set(field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case FieldAddress:
		s.cfg.Address = value
	case FieldUsername:
		s.cfg.Username = value
	case FieldPassword:
		s.cfg.Password = value
	case FieldToolPath:
		s.cfg.ToolPath = value
	default:
		return errors.New().WithData(errors.ErrInvalidArgument, fmt.Sprintf("unknown endpoint field %q", field))
	}
	s.version++

	return nil
}

// Version counts accepted writes since the store was created.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}
