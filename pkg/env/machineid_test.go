package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiverIDStable(t *testing.T) {
	id := ReceiverID()
	require.NotEmpty(t, id)
	require.NotContains(t, id, "/")
	require.Equal(t, id, ReceiverID())
}
