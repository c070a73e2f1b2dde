package vlan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/nffg"
)

type fakeBusyLookup struct {
	busy map[int]bool
}

func (f *fakeBusyLookup) BusyVlansOn(ctx context.Context, switchID, portIn string, match nffg.Match) (map[int]bool, error) {
	return f.busy, nil
}

func TestParseVlanRanges(t *testing.T) {
	ranges, err := config.ParseVlanRanges("280-289,62,737,90-95")
	require.NoError(t, err)
	assert.Equal(t, []config.VlanRange{
		{Low: 62, High: 62},
		{Low: 90, High: 95},
		{Low: 280, High: 289},
		{Low: 737, High: 737},
	}, ranges)
}

func TestParseVlanRanges_SwappedBoundsDropped(t *testing.T) {
	ranges, err := config.ParseVlanRanges("95-90,10-20")
	require.NoError(t, err)
	assert.Equal(t, []config.VlanRange{{Low: 10, High: 20}}, ranges)
}

func TestFreeVlanOn_PreferredAvailable(t *testing.T) {
	ranges, _ := config.ParseVlanRanges("100-110")
	a := New(ranges, &fakeBusyLookup{busy: map[int]bool{}})

	preferred := 105
	vid, err := a.FreeVlanOn(context.Background(), "s1", "p1", nffg.Match{}, &preferred)
	require.NoError(t, err)
	require.NotNil(t, vid)
	assert.Equal(t, 105, *vid)
}

func TestFreeVlanOn_PreferredBusyFallsBackToRange(t *testing.T) {
	ranges, _ := config.ParseVlanRanges("100-110")
	a := New(ranges, &fakeBusyLookup{busy: map[int]bool{105: true, 100: true}})

	preferred := 105
	vid, err := a.FreeVlanOn(context.Background(), "s1", "p1", nffg.Match{}, &preferred)
	require.NoError(t, err)
	require.NotNil(t, vid)
	assert.Equal(t, 101, *vid)
}

func TestFreeVlanOn_NoPreferredReturnsSmallest(t *testing.T) {
	ranges, _ := config.ParseVlanRanges("280-289,62,90-95")
	a := New(ranges, &fakeBusyLookup{busy: map[int]bool{}})

	vid, err := a.FreeVlanOn(context.Background(), "s1", "p1", nffg.Match{}, nil)
	require.NoError(t, err)
	require.NotNil(t, vid)
	assert.Equal(t, 62, *vid)
}

func TestFreeVlanOn_ExhaustedReturnsNil(t *testing.T) {
	ranges, _ := config.ParseVlanRanges("62")
	a := New(ranges, &fakeBusyLookup{busy: map[int]bool{62: true}})

	vid, err := a.FreeVlanOn(context.Background(), "s1", "p1", nffg.Match{}, nil)
	require.NoError(t, err)
	assert.Nil(t, vid)
}
