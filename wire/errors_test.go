package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerErrorName(t *testing.T) {
	e := &ServerError{Code: 911, TrID: 4}
	assert.Equal(t, "authentication failed", e.Name())
	assert.Contains(t, e.Error(), "911")
	assert.Contains(t, e.Error(), "authentication failed")
	assert.True(t, errors.Is(e, ErrServer))
	assert.True(t, errors.Is(e, ErrBadCredentials))
}

func TestServerErrorUnknownCode(t *testing.T) {
	e := &ServerError{Code: 999, TrID: 1}
	assert.Equal(t, "", e.Name())
	assert.NotContains(t, e.Error(), "()")
	assert.True(t, errors.Is(e, ErrServer))
	assert.False(t, errors.Is(e, ErrBadCredentials))
}
