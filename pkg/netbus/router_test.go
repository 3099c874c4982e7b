package netbus_test

import (
	"testing"

	"github.com/trustmesh/node/pkg/netbus"
	"github.com/stretchr/testify/require"
)

func TestRouter_MatchesAndBindsParams(t *testing.T) {
	r := netbus.NewRouter()
	var gotID, gotKey string
	r.Handle("authenticated/:id/attribute/:key", func(ctx *netbus.RequestContext) {
		gotID = ctx.Params["id"]
		gotKey = ctx.Params["key"]
	})

	ctx, handler, ok := r.Match("/authenticated/alice/attribute/email")
	require.True(t, ok)
	handler(ctx)
	require.Equal(t, "alice", gotID)
	require.Equal(t, "email", gotKey)
}

func TestRouter_NoMatchForUnknownPath(t *testing.T) {
	r := netbus.NewRouter()
	r.Handle("sign", func(ctx *netbus.RequestContext) {})

	_, _, ok := r.Match("/unknown")
	require.False(t, ok)
}

func TestRouter_SegmentCountMustMatch(t *testing.T) {
	r := netbus.NewRouter()
	r.Handle("member/:id", func(ctx *netbus.RequestContext) {})

	_, _, ok := r.Match("/member/alice/extra")
	require.False(t, ok)
}

func TestSplitPath(t *testing.T) {
	require.Equal(t, []string{"member", "alice"}, netbus.SplitPath("/member/alice/"))
	require.Nil(t, netbus.SplitPath("/"))
	require.Nil(t, netbus.SplitPath(""))
}
