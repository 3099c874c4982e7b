package obs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustmesh/node/pkg/obs"
)

func TestNewDisabledProviderIsSafeNoop(t *testing.T) {
	p, err := obs.New(context.Background(), &obs.Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx, done := p.TrackOperation(context.Background(), "test.op")
	done(nil)
	require.NotNil(t, ctx)

	ctx2, done2 := p.TrackOperation(context.Background(), "test.op.err")
	done2(errors.New("boom"))
	require.NotNil(t, ctx2)

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestDefaultConfigIsEnabled(t *testing.T) {
	cfg := obs.DefaultConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, "trustmesh-node", cfg.ServiceName)
}
