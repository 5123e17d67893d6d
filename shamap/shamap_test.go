/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 09:02:17 2019 mstenber
 * Last modified: Thu Mar 28 17:22:40 2019 mstenber
 * Edit time:     122 min
 *
 */

package shamap

import (
	"fmt"
	"testing"

	"github.com/stvp/assert"
)

func testItem(n int) Item {
	payload := []byte(fmt.Sprintf("payload-%d", n))
	return Item{Key: Key(SHA512Half(payload)), Value: payload}
}

func TestEmptyMap(t *testing.T) {
	m := SHAMap{}.Init()
	assert.Equal(t, m.RootHash(), SHA512Half(make([]byte, innerWireSize)))
	ids, hashes := m.GetMissingNodes(128)
	assert.Equal(t, len(ids), 0)
	assert.Equal(t, len(hashes), 0)
}

func TestAddGetDelete(t *testing.T) {
	m := SHAMap{}.Init()
	empty := m.RootHash()
	n := 100
	for i := 0; i < n; i++ {
		assert.Nil(t, m.AddItem(testItem(i)))
	}
	for i := 0; i < n; i++ {
		it := testItem(i)
		got, found := m.GetItem(it.Key)
		assert.True(t, found, "missing item ", i)
		assert.Equal(t, got.Value, it.Value)
	}
	_, found := m.GetItem(Key(SHA512Half([]byte("nonexistent"))))
	assert.True(t, !found)

	for i := 0; i < n; i++ {
		removed, err := m.DeleteItem(testItem(i).Key)
		assert.Nil(t, err)
		assert.True(t, removed)
	}
	removed, err := m.DeleteItem(testItem(0).Key)
	assert.Nil(t, err)
	assert.True(t, !removed)

	// Emptied map commits to the same hash as a fresh one.
	assert.Equal(t, m.RootHash(), empty)
	assert.Equal(t, len(m.inners), 1)
	assert.Equal(t, len(m.leaves), 0)
}

func TestSingleItemShape(t *testing.T) {
	m := SHAMap{}.Init()
	assert.Nil(t, m.AddItem(testItem(0)))
	// One leaf at depth 64 behind a full inner spine.
	assert.Equal(t, len(m.inners), LeafDepth)
	assert.Equal(t, len(m.leaves), 1)
	nonEmpty := 0
	for i := 0; i < BranchFactor; i++ {
		if !m.root.EmptyBranch(i) {
			nonEmpty++
		}
	}
	assert.Equal(t, nonEmpty, 1)
}

func TestReplaceItem(t *testing.T) {
	m := SHAMap{}.Init()
	it := testItem(1)
	assert.Nil(t, m.AddItem(it))
	h1 := m.RootHash()
	it.Value = []byte("other")
	assert.Nil(t, m.AddItem(it))
	assert.NotEqual(t, m.RootHash(), h1)
	got, found := m.GetItem(it.Key)
	assert.True(t, found)
	assert.Equal(t, got.Value, []byte("other"))
}

func TestRootHashDeterminism(t *testing.T) {
	n := 50
	m1 := SHAMap{}.Init()
	m2 := SHAMap{}.Init()
	for i := 0; i < n; i++ {
		assert.Nil(t, m1.AddItem(testItem(i)))
	}
	for i := n - 1; i >= 0; i-- {
		assert.Nil(t, m2.AddItem(testItem(i)))
	}
	assert.Equal(t, m1.RootHash(), m2.RootHash())
	assert.True(t, m1.DeepCompare(m2))
	assert.True(t, m2.DeepCompare(m1))
}

func TestImmutable(t *testing.T) {
	m := SHAMap{}.Init()
	assert.Nil(t, m.AddItem(testItem(0)))
	m.SetImmutable()
	assert.True(t, m.IsImmutable())
	assert.Equal(t, m.AddItem(testItem(1)), ErrImmutable)
	_, err := m.DeleteItem(testItem(0).Key)
	assert.Equal(t, err, ErrImmutable)
	// Reads still fine.
	_, found := m.GetItem(testItem(0).Key)
	assert.True(t, found)
}

func TestIterateItems(t *testing.T) {
	m := SHAMap{}.Init()
	n := 20
	for i := 0; i < n; i++ {
		assert.Nil(t, m.AddItem(testItem(i)))
	}
	seen := make(map[Key]bool)
	var prev *Key
	m.IterateItems(func(it Item) bool {
		if prev != nil {
			// Key order comes free from branch order.
			assert.True(t, string(prev[:]) < string(it.Key[:]))
		}
		k := it.Key
		prev = &k
		seen[it.Key] = true
		return true
	})
	assert.Equal(t, len(seen), n)

	cnt := 0
	m.IterateItems(func(it Item) bool {
		cnt++
		return cnt < 5
	})
	assert.Equal(t, cnt, 5)
}

func TestWalkTo(t *testing.T) {
	m := SHAMap{}.Init()
	it := testItem(0)
	assert.Nil(t, m.AddItem(it))
	// Walk to the leaf id: deepest resident inner is its parent.
	n := m.WalkTo(NodeID{Depth: LeafDepth, Key: it.Key})
	assert.Equal(t, n.id.Depth, LeafDepth-1)
	// Walk along a key that departs immediately: the root.
	other := Key(SHA512Half([]byte("elsewhere")))
	if m.root.id.SelectBranch(other) != m.root.id.SelectBranch(it.Key) {
		n = m.WalkTo(NodeID{Depth: LeafDepth, Key: other})
		assert.Equal(t, n.id.Depth, 0)
	}
}

func TestDirtyTracking(t *testing.T) {
	m := SHAMap{TrackDirty: true}.Init()
	assert.Nil(t, m.AddItem(testItem(0)))
	inners, leaves := m.PopDirty()
	// Root + spine, one leaf.
	assert.Equal(t, len(inners), LeafDepth)
	assert.Equal(t, len(leaves), 1)

	inners, leaves = m.PopDirty()
	assert.Equal(t, len(inners), 0)
	assert.Equal(t, len(leaves), 0)

	// Untracked map yields nil.
	m2 := SHAMap{}.Init()
	inners, leaves = m2.PopDirty()
	assert.True(t, inners == nil)
	assert.True(t, leaves == nil)
}

func TestSequence(t *testing.T) {
	m := SHAMap{}.Init()
	assert.Equal(t, m.Sequence(), uint64(1))
	assert.Equal(t, m.AdvanceSequence(), uint64(2))
	assert.Nil(t, m.AddItem(testItem(0)))
	assert.Equal(t, m.root.seq, uint64(2))
}
