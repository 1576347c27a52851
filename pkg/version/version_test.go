package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetKeepsFirstValue(t *testing.T) {
	mu.Lock()
	version = ""
	mu.Unlock()

	require.Equal(t, "dev", Version())
	Set("")
	require.Equal(t, "dev", Version())
	Set("1.1.0")
	require.Equal(t, "1.1.0", Version())
	Set("2.0.0")
	require.Equal(t, "1.1.0", Version())
}
