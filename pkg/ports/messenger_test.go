package ports_test

import (
	"errors"
	"testing"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestResolved(t *testing.T) {
	boom := errors.New("boom")

	ch := ports.Resolved(boom)
	assert.ErrorIs(t, <-ch, boom)

	_, open := <-ch
	assert.False(t, open, "future must be closed after its single value")

	assert.NoError(t, <-ports.Resolved(nil))
}
