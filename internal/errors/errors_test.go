package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "IPMI tool not found", errFactory.New(errors.ErrToolNotFound).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "IPMI command failed: exit 1",
		errFactory.WithData(errors.ErrCommandFailed, "exit 1").Error())
	assert.Equal(t, "unknown_code", errFactory.New(errors.ErrorCode("unknown_code")).Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := errors.New().Wrap(errors.ErrCollectMetrics, cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Failed to collect metrics data: boom", err.Error())
}

func TestCodeOf(t *testing.T) {
	inner := errors.New().New(errors.ErrToolNotFound)
	outer := fmt.Errorf("cycle: %w", inner)

	assert.Equal(t, errors.ErrToolNotFound, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(nil))
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()
	err := errFactory.Wrap(errors.ErrCollectMetrics, errFactory.New(errors.ErrTimeout))

	assert.True(t, errors.HasCode(err, errors.ErrCollectMetrics))
	assert.True(t, errors.HasCode(err, errors.ErrTimeout))
	assert.False(t, errors.HasCode(err, errors.ErrToolNotFound))
}

func TestWithMessagePreservesCode(t *testing.T) {
	err := errors.New().New(errors.ErrInvalidBands).WithMessage("bands out of order")

	assert.Equal(t, errors.ErrInvalidBands, err.Code())
	assert.Equal(t, "bands out of order", err.Error())
}

func TestIsMatchesByCode(t *testing.T) {
	errFactory := errors.New()
	err := fmt.Errorf("cycle: %w", errFactory.WithData(errors.ErrCommandFailed, "exit 1"))

	assert.True(t, errors.Is(err, errFactory.New(errors.ErrCommandFailed)))
	assert.False(t, errors.Is(err, errFactory.New(errors.ErrToolNotFound)))
}
