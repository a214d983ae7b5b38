package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_ReclaimsSatisfiedClauses(t *testing.T) {
	interceptFatal(t)
	c := New()

	addOriginal(c, 1, 2)
	addOriginal(c, 2, 3)
	addOriginal(c, 2) // unit: both stored clauses become root-satisfied
	require.Equal(t, int64(2), c.stats.Live)
	require.Equal(t, 1, c.newUnits)

	// Force the cooldown to elapse on the next add.
	c.countdown = 1
	addOriginal(c, 4, 5)

	assert.Equal(t, int64(2), c.stats.Collected)
	assert.Equal(t, int64(1), c.collections)
	assert.Equal(t, int64(1), c.stats.Live, "only the unsatisfied clause survives")
	assert.Equal(t, 0, c.newUnits, "collection resets the unit counter")
	assert.Equal(t, 2*gcInterval, c.countdown)
	checkInvariants(t, c)
}

func TestCollect_RequiresNewUnits(t *testing.T) {
	interceptFatal(t)
	c := New()

	addOriginal(c, 1, 2)
	c.countdown = 1
	addOriginal(c, 3, 4)

	assert.Equal(t, int64(0), c.collections, "no collection without new units")
	assert.Equal(t, int64(2), c.stats.Live)
	checkInvariants(t, c)
}

func TestCollect_RebuildsWatchLists(t *testing.T) {
	interceptFatal(t)
	c := New()

	// Several clauses sharing literals so that the reconnection pass has to
	// deal with clauses reached through both watch positions.
	addOriginal(c, 1, 2, 3)
	addOriginal(c, 2, 4)
	addOriginal(c, -1, 4, 5)
	addOriginal(c, 4, 6)
	addOriginal(c, 1)
	require.Equal(t, int64(4), c.stats.Live)

	c.countdown = 1
	addOriginal(c, 5, 6)

	// {1,2,3} is satisfied by the unit; the others survive and must remain
	// fully and uniquely watched.
	assert.Equal(t, int64(1), c.stats.Collected)
	assert.Equal(t, int64(4), c.stats.Live)
	checkInvariants(t, c)

	// Surviving clauses must still be reachable for deletion.
	deleteClause(c, 2, 4)
	deleteClause(c, -1, 4, 5)
	deleteClause(c, 4, 6)
	deleteClause(c, 5, 6)
	assert.Equal(t, int64(0), c.stats.Live)
	checkInvariants(t, c)
}

func TestCollect_ConsecutiveCollections(t *testing.T) {
	interceptFatal(t)
	c := New()

	addOriginal(c, 1, 2)
	addOriginal(c, 1)
	c.countdown = 1
	addOriginal(c, 3, 4)
	require.Equal(t, int64(1), c.collections)

	addOriginal(c, 3)
	c.countdown = 1
	addOriginal(c, 5, 6)

	assert.Equal(t, int64(2), c.collections)
	assert.Equal(t, int64(2), c.stats.Collected)
	assert.Equal(t, 3*gcInterval, c.countdown, "cooldown grows arithmetically")
	assert.Equal(t, int64(1), c.stats.Live)
	checkInvariants(t, c)
}
