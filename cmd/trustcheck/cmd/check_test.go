package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corey/trustcheck/internal/adapters/socket"
	"github.com/corey/trustcheck/internal/ports"
)

func TestExplainCheckError(t *testing.T) {
	remote := &socket.RemoteError{Message: ports.ErrSuperseded.Error(), Code: socket.CodeSuperseded}
	err := explainCheckError(remote)
	assert.ErrorIs(t, err, ports.ErrSuperseded)
	assert.Contains(t, err.Error(), "retry")

	other := errors.New("connect: refused")
	assert.Same(t, other, explainCheckError(other))
}
