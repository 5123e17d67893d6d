/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 13 09:12:44 2019 mstenber
 * Last modified: Thu Mar 28 16:40:21 2019 mstenber
 * Edit time:     402 min
 *
 */

// shamap package provides a cryptographically authenticated radix-16
// trie. The map commits to its contents via a single 256-bit root
// hash; two maps that agree on that hash hold byte-identical
// contents, and two maps that do not can exchange exactly the nodes
// one of them is missing (see sync.go).
//
// Keys are 256 bits, consumed a nibble per level; inner nodes live at
// depths 0..63 and leaves at depth 64. Updates rehash the inner nodes
// on the path to the root in place; those nodes are not cloned.
package shamap

import (
	"github.com/fingon/go-shamap/mlog"
	"github.com/fingon/go-shamap/util"
)

// SHAMap is one authenticated map. All public operations serialize
// under one recursive lock; mutation helpers re-enter read helpers
// that also take it.
type SHAMap struct {
	// TrackDirty enables the dirty sets consumed by an external
	// snapshotter. Set before Init.
	TrackDirty bool

	lock util.RMutexLocked

	root   *InnerNode
	inners map[NodeID]*InnerNode
	leaves map[NodeID]*LeafNode

	dirtyInners map[NodeID]*InnerNode
	dirtyLeaves map[NodeID]*LeafNode

	// seq is the generation tag stamped on nodes as they are
	// written; it advances when a snapshot is cut.
	seq uint64

	immutable bool
	synching  bool
}

// Init sets up an empty map with a pristine all-empty root.
func (self SHAMap) Init() *SHAMap {
	self.inners = make(map[NodeID]*InnerNode)
	self.leaves = make(map[NodeID]*LeafNode)
	if self.TrackDirty {
		self.dirtyInners = make(map[NodeID]*InnerNode)
		self.dirtyLeaves = make(map[NodeID]*LeafNode)
	}
	self.seq = 1
	root := newInnerNode(NodeID{}, self.seq)
	self.root = root
	self.inners[root.id] = root
	self.markDirtyInner(root)
	return &self
}

// RootHash returns the 256-bit commitment to the whole map. For an
// empty map this is the hash of 16 zero hashes.
func (self *SHAMap) RootHash() Hash {
	defer self.lock.Locked()()
	return self.root.hash
}

// Sequence returns the current generation tag.
func (self *SHAMap) Sequence() uint64 {
	defer self.lock.Locked()()
	return self.seq
}

// AdvanceSequence bumps the generation; subsequently written nodes
// get the new tag. Called by the snapshotter after cutting a
// snapshot.
func (self *SHAMap) AdvanceSequence() uint64 {
	defer self.lock.Locked()()
	self.seq++
	return self.seq
}

// SetImmutable freezes the map; no further item mutation is
// permitted.
func (self *SHAMap) SetImmutable() {
	defer self.lock.Locked()()
	self.immutable = true
}

func (self *SHAMap) IsImmutable() bool {
	defer self.lock.Locked()()
	return self.immutable
}

// SetSynching brackets a period during which a partial tree may
// exist: some children are referenced by hash but not resident.
// Outside the window the tree must be structurally complete.
func (self *SHAMap) SetSynching() {
	defer self.lock.Locked()()
	self.synching = true
}

func (self *SHAMap) ClearSynching() {
	defer self.lock.Locked()()
	self.synching = false
}

func (self *SHAMap) IsSynching() bool {
	defer self.lock.Locked()()
	return self.synching
}

// AddItem inserts or replaces the item under its key.
func (self *SHAMap) AddItem(item Item) error {
	defer self.lock.Locked()()
	if self.immutable || self.synching {
		return ErrImmutable
	}
	mlog.Printf2("shamap/shamap", "sm.AddItem %s (%d b)", item.Key, len(item.Value))

	// Descend, materializing the inner spine as needed.
	type step struct {
		node   *InnerNode
		branch int
	}
	var path [LeafDepth]step
	node := self.root
	for depth := 0; depth < LeafDepth; depth++ {
		branch := node.id.SelectBranch(item.Key)
		path[depth] = step{node, branch}
		if depth == LeafDepth-1 {
			break
		}
		cid := node.id.ChildID(branch)
		child := self.inners[cid]
		if child == nil {
			child = newInnerNode(cid, self.seq)
			self.inners[cid] = child
		}
		node = child
	}

	leaf := newLeafNode(item, self.seq)
	self.leaves[leaf.id] = leaf
	self.markDirtyLeaf(leaf)

	// Rewrite hashes bottom-up to the root.
	h := leaf.hash
	for depth := LeafDepth - 1; depth >= 0; depth-- {
		n := path[depth].node
		n.setChildHash(path[depth].branch, h)
		n.seq = self.seq
		self.markDirtyInner(n)
		h = n.hash
	}
	return nil
}

// GetItem looks up the item under key.
func (self *SHAMap) GetItem(key Key) (item Item, found bool) {
	defer self.lock.Locked()()
	leaf := self.leafForKey(key)
	if leaf == nil {
		return
	}
	return leaf.item, true
}

func (self *SHAMap) leafForKey(key Key) *LeafNode {
	node := self.root
	for {
		branch := node.id.SelectBranch(key)
		if node.EmptyBranch(branch) {
			return nil
		}
		cid := node.id.ChildID(branch)
		if cid.IsLeaf() {
			return self.leaves[cid]
		}
		node = self.inners[cid]
		if node == nil {
			// Referenced but not resident; possible only
			// mid-synch.
			return nil
		}
	}
}

// DeleteItem removes the item under key, pruning inner nodes that
// become empty. Returns whether the item existed.
func (self *SHAMap) DeleteItem(key Key) (bool, error) {
	defer self.lock.Locked()()
	if self.immutable || self.synching {
		return false, ErrImmutable
	}
	type step struct {
		node   *InnerNode
		branch int
	}
	var path [LeafDepth]step
	node := self.root
	for depth := 0; depth < LeafDepth; depth++ {
		branch := node.id.SelectBranch(key)
		if node.EmptyBranch(branch) {
			return false, nil
		}
		path[depth] = step{node, branch}
		if depth == LeafDepth-1 {
			break
		}
		node = self.inners[node.id.ChildID(branch)]
		if node == nil {
			return false, ErrInvariant
		}
	}
	lid := NodeID{Depth: LeafDepth, Key: key}
	if self.leaves[lid] == nil {
		return false, ErrInvariant
	}
	mlog.Printf2("shamap/shamap", "sm.DeleteItem %s", key)
	delete(self.leaves, lid)
	delete(self.dirtyLeaves, lid)

	// Clear the slot; prune now-empty inners, then rehash up.
	pruning := true
	var h Hash
	for depth := LeafDepth - 1; depth >= 0; depth-- {
		n := path[depth].node
		if pruning {
			n.setChildHash(path[depth].branch, zeroHash)
			if n.empty() && depth > 0 {
				delete(self.inners, n.id)
				delete(self.dirtyInners, n.id)
				continue
			}
			pruning = false
		} else {
			n.setChildHash(path[depth].branch, h)
		}
		n.seq = self.seq
		self.markDirtyInner(n)
		h = n.hash
	}
	return true, nil
}

// IterateItems calls fn for every resident item, in key order, until
// it returns false.
func (self *SHAMap) IterateItems(fn func(Item) bool) {
	defer self.lock.Locked()()
	self.iterateItems(self.root, fn)
}

func (self *SHAMap) iterateItems(node *InnerNode, fn func(Item) bool) bool {
	for i := 0; i < BranchFactor; i++ {
		if node.EmptyBranch(i) {
			continue
		}
		cid := node.ChildNodeID(i)
		if cid.IsLeaf() {
			leaf := self.leaves[cid]
			if leaf != nil && !fn(leaf.item) {
				return false
			}
			continue
		}
		child := self.inners[cid]
		if child != nil && !self.iterateItems(child, fn) {
			return false
		}
	}
	return true
}

// WalkTo returns the deepest resident inner node on the path to id:
// descend by SelectBranch until the target depth is reached or the
// next branch is empty or unresident.
func (self *SHAMap) WalkTo(id NodeID) *InnerNode {
	defer self.lock.Locked()()
	node := self.root
	if node == nil {
		return nil
	}
	for node.id.Depth < id.Depth {
		branch := node.id.SelectBranch(id.Key)
		if node.EmptyBranch(branch) {
			return node
		}
		next := self.inners[node.id.ChildID(branch)]
		if next == nil {
			return node
		}
		node = next
	}
	return node
}

// getInner returns the resident inner node for id only if its hash
// matches what the caller observed on the parent; a mismatch yields
// nil, never a stale node.
func (self *SHAMap) getInner(id NodeID, expected Hash) *InnerNode {
	n := self.inners[id]
	if n == nil || n.hash != expected {
		return nil
	}
	return n
}

func (self *SHAMap) getLeaf(id NodeID, expected Hash) *LeafNode {
	n := self.leaves[id]
	if n == nil || n.hash != expected {
		return nil
	}
	return n
}

// checkCacheInner is the fast "already have" test used by sync.
func (self *SHAMap) checkCacheInner(id NodeID) bool {
	return self.inners[id] != nil
}

func (self *SHAMap) checkCacheLeaf(id NodeID) bool {
	return self.leaves[id] != nil
}

func (self *SHAMap) markDirtyInner(n *InnerNode) {
	if self.dirtyInners != nil {
		self.dirtyInners[n.id] = n
	}
}

func (self *SHAMap) markDirtyLeaf(n *LeafNode) {
	if self.dirtyLeaves != nil {
		self.dirtyLeaves[n.id] = n
	}
}

// PopDirty returns and clears the dirty sets. Nil results if the map
// does not track dirties.
func (self *SHAMap) PopDirty() (inners []*InnerNode, leaves []*LeafNode) {
	defer self.lock.Locked()()
	if self.dirtyInners == nil {
		return
	}
	inners = make([]*InnerNode, 0, len(self.dirtyInners))
	for _, n := range self.dirtyInners {
		inners = append(inners, n)
	}
	leaves = make([]*LeafNode, 0, len(self.dirtyLeaves))
	for _, n := range self.dirtyLeaves {
		leaves = append(leaves, n)
	}
	self.dirtyInners = make(map[NodeID]*InnerNode)
	self.dirtyLeaves = make(map[NodeID]*LeafNode)
	mlog.Printf2("shamap/shamap", "sm.PopDirty %d+%d", len(inners), len(leaves))
	return
}
