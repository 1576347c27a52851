package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/mcpsheets/config"
)

func TestNewControllerNormalizesLimits(t *testing.T) {
	ctrl := NewController(Limits{MaxConcurrentCalls: -3, CallTimeout: -time.Second})
	l := ctrl.Limits()
	require.Equal(t, 1, l.MaxConcurrentCalls)
	require.Equal(t, 1, l.MaxOpenWorkbooks)
	require.Zero(t, l.CallTimeout)
}

func TestBeginCallSerializes(t *testing.T) {
	ctrl := NewController(Limits{})
	done, err := ctrl.BeginCall(context.Background())
	require.NoError(t, err)
	require.Equal(t, Usage{ActiveCalls: 1}, ctrl.Usage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = ctrl.BeginCall(ctx)
	require.Error(t, err)

	done()
	done()
	require.Equal(t, Usage{}, ctrl.Usage())

	done, err = ctrl.BeginCall(context.Background())
	require.NoError(t, err)
	done()
}

func TestWorkbookSlots(t *testing.T) {
	ctrl := NewController(Limits{MaxOpenWorkbooks: 2})
	require.NoError(t, ctrl.AcquireWorkbook(context.Background()))
	require.NoError(t, ctrl.AcquireWorkbook(context.Background()))
	require.EqualValues(t, 2, ctrl.Usage().OpenWorkbooks)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, ctrl.AcquireWorkbook(ctx))

	ctrl.ReleaseWorkbook()
	ctrl.ReleaseWorkbook()
	require.Zero(t, ctrl.Usage().OpenWorkbooks)
}

func TestLimitsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OperationTimeout = 2 * time.Second

	l := LimitsFromConfig(cfg)
	require.Equal(t, 1, l.MaxConcurrentCalls)
	require.Equal(t, 1, l.MaxOpenWorkbooks)
	require.Equal(t, 2*time.Second, l.CallTimeout)
	require.Zero(t, l.QueueTimeout)
}
