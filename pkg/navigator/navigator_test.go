package navigator

import (
	"context"
	"testing"

	"albumscan/pkg/config"
	"albumscan/pkg/logger"
	"albumscan/pkg/models"
	"albumscan/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNavigator() *Navigator {
	cfg := config.DefaultConfig().Traversal
	return New(cfg, NewObserver(cfg), WithInterval(&retry.ConstantBackoff{}), WithLogger(logger.NewNopLogger()))
}

func frames(n int) []frame {
	out := make([]frame, n)
	for i := range out {
		out[i] = frame{weak: string(rune('a' + i)), src: "https://cdn.test/p/" + string(rune('a'+i)) + ".jpg?oh=1"}
	}
	return out
}

func TestObserve(t *testing.T) {
	page := &scriptedPage{frames: frames(2)}
	obs, err := testNavigator().observer.Observe(context.Background(), page)

	require.NoError(t, err)
	require.NotNil(t, obs.Item)
	assert.Equal(t, models.ItemIdentity{WeakKey: "a", StrongKey: "/p/a.jpg"}, obs.Identity)
	assert.Equal(t, 1024, obs.Item.NaturalWidth)
}

func TestObserveWithoutItem(t *testing.T) {
	page := &scriptedPage{frames: []frame{{weak: "a"}}}
	obs, err := testNavigator().observer.Observe(context.Background(), page)

	require.NoError(t, err)
	assert.Nil(t, obs.Item)
	assert.Empty(t, obs.Identity.StrongKey)
}

func TestAdvanceConfirmsChange(t *testing.T) {
	ctx := context.Background()
	page := &scriptedPage{frames: frames(3), lag: 2}
	nav := testNavigator()

	before, err := nav.observer.Observe(ctx, page)
	require.NoError(t, err)

	control, err := nav.FindNext(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, `div[aria-label="Next photo"]`, control)

	out, err := nav.Advance(ctx, page, control, before.Identity, func() bool { return true })
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, "b", out.After.WeakKey)
	assert.Equal(t, 1, page.activations)
}

func TestAdvanceStalls(t *testing.T) {
	ctx := context.Background()
	page := &scriptedPage{frames: frames(1)}
	nav := testNavigator()

	before, _ := nav.observer.Observe(ctx, page)
	out, err := nav.Advance(ctx, page, "next", before.Identity, func() bool { return true })

	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, 15, out.Attempts)
	// initial activation plus exactly one re-activation
	assert.Equal(t, 2, page.activations)
}

func TestAdvanceSkipsReactivationWhenStopped(t *testing.T) {
	ctx := context.Background()
	page := &scriptedPage{frames: frames(1)}
	nav := testNavigator()

	before, _ := nav.observer.Observe(ctx, page)
	out, err := nav.Advance(ctx, page, "next", before.Identity, func() bool { return false })

	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, 1, page.activations)
}

func TestAdvanceEndOfCollection(t *testing.T) {
	ctx := context.Background()
	page := &scriptedPage{frames: frames(2), hasNext: func(int) bool { return false }}
	nav := testNavigator()

	control, err := nav.FindNext(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, control)

	out, err := nav.Advance(ctx, page, control, models.ItemIdentity{}, nil)
	require.NoError(t, err)
	assert.True(t, out.EndOfCollection)
	assert.Zero(t, page.activations)
}

func TestAdvanceToleratesObservationErrors(t *testing.T) {
	ctx := context.Background()
	page := &scriptedPage{frames: frames(2), lag: 1, failObserve: 0}
	nav := testNavigator()

	before, _ := nav.observer.Observe(ctx, page)
	page.failObserve = 2

	out, err := nav.Advance(ctx, page, "next", before.Identity, nil)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, 3, out.Attempts)
}

func TestAdvanceStrongKeyChangeOnly(t *testing.T) {
	ctx := context.Background()
	page := &scriptedPage{frames: []frame{
		{weak: "", src: "https://cdn.test/one.jpg"},
		{weak: "", src: "https://cdn.test/two.jpg"},
	}}
	nav := testNavigator()

	before, _ := nav.observer.Observe(ctx, page)
	out, err := nav.Advance(ctx, page, "next", before.Identity, nil)

	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, "/two.jpg", out.After.StrongKey)
}

func TestAdvanceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := &scriptedPage{frames: frames(1)}
	nav := testNavigator()
	before, _ := nav.observer.Observe(ctx, page)
	cancel()

	_, err := nav.Advance(ctx, page, "next", before.Identity, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
