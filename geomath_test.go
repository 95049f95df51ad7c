package osmroute

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestGreatCircleDistance(t *testing.T) {
	// One degree of longitude along the equator.
	d := greatCircleDistance(orb.Point{0, 0}, orb.Point{1, 0})
	require.InDelta(t, earthRadius*pi180, d, 1e-9)

	// At 60 degrees latitude a longitude degree spans half as much.
	dHigh := greatCircleDistance(orb.Point{0, 60}, orb.Point{1, 60})
	require.InDelta(t, d/2, dHigh, 0.05)

	require.Equal(t, 0.0, greatCircleDistance(orb.Point{8, 50}, orb.Point{8, 50}))
}

func TestMiddlePointSegment(t *testing.T) {
	mid := middlePointSegment(orb.Point{0, 0}, orb.Point{2, 0})
	require.InDelta(t, 1.0, mid.Lon(), 1e-9)
	require.InDelta(t, 0.0, mid.Lat(), 1e-9)
}
