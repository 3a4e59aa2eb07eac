package xerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesThroughWrapping(t *testing.T) {
	base := errors.New("insert failed")
	err := fmt.Errorf("create: %w", Wrap(InternalServerError, "fallback failed", base))

	assert.True(t, Is(err, InternalServerError))
	assert.False(t, Is(err, NotFound))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "insert failed")
}

func TestIsPredefined(t *testing.T) {
	assert.True(t, Is(ErrNoRecipients, NoRecipients))
	assert.True(t, Is(ErrNoTenantContext, NoTenantContext))
	assert.False(t, Is(errors.New("plain"), NoRecipients))
	assert.False(t, Is(nil, OK))
}
