/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 11:30:02 2019 mstenber
 * Last modified: Fri Mar 29 10:17:46 2019 mstenber
 * Edit time:     351 min
 *
 */

// Pull-based synchronization. The recipient repeatedly asks its own
// partial map what it is missing (GetMissingNodes), pulls fat
// responses from the sender (GetNodeFat) and ingests them
// (AddRootNode / AddKnownNode), validating every pushed node against
// the child hash already held on its parent. A mid-sync sender
// mutation can therefore only produce rejected pushes (a hash
// mismatch, or a node that cannot be hooked to a resident parent),
// never silent corruption.

package shamap

import (
	"fmt"

	"github.com/fingon/go-shamap/mlog"
)

// GetMissingNodes walks the map depth-first from the root and returns
// up to max (id, hash) pairs naming children that inner nodes
// reference but the map does not contain. An empty result means
// nothing more is needed.
//
// Subtrees whose root has fullBelow set are skipped; the flag is set
// on a node once every non-empty branch resolves to a resident leaf
// or a fullBelow inner child. That stricter-than-presence condition
// keeps the flag truthful (a flagged node never has a missing
// descendant) and still bounds repeated rounds to the unfinished
// part of the tree.
func (self *SHAMap) GetMissingNodes(max int) (ids []NodeID, hashes []Hash) {
	defer self.lock.Locked()()

	if self.root.fullBelow {
		mlog.Printf2("shamap/sync", "sm.GetMissingNodes: root is full below")
		return
	}
	stack := []*InnerNode{self.root}
	for max > 0 && len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		haveAll := true
		for i := 0; i < BranchFactor; i++ {
			if node.EmptyBranch(i) {
				continue
			}
			cid := node.ChildNodeID(i)
			ch := node.ChildHash(i)
			if cid.IsLeaf() {
				if self.getLeaf(cid, ch) == nil {
					haveAll = false
					if max > 0 {
						max--
						ids = append(ids, cid)
						hashes = append(hashes, ch)
					}
				}
				continue
			}
			desc := self.getInner(cid, ch)
			if desc == nil {
				haveAll = false
				if max > 0 {
					max--
					ids = append(ids, cid)
					hashes = append(hashes, ch)
				}
			} else if !desc.fullBelow {
				haveAll = false
				stack = append(stack, desc)
			}
		}
		if haveAll {
			mlog.Printf2("shamap/sync", "sm.GetMissingNodes: %v now full below", node.id)
			node.fullBelow = true
		}
	}
	return
}

// GetNodeFat serves a pull request: the wanted node plus, for an
// inner node, every resident immediate child. Missing children are
// skipped; complete is false if any were. A leaf has no fat form
// and is returned alone.
func (self *SHAMap) GetNodeFat(wanted NodeID) (ids []NodeID, raw [][]byte, complete bool, err error) {
	defer self.lock.Locked()()

	if wanted.IsLeaf() {
		leaf := self.leaves[wanted]
		if leaf == nil {
			err = ErrNotFound
			return
		}
		return []NodeID{leaf.id}, [][]byte{leaf.Serialize()}, true, nil
	}

	node := self.inners[wanted]
	if node == nil {
		err = ErrNotFound
		return
	}
	ids = append(ids, node.id)
	raw = append(raw, node.Serialize())
	complete = true
	for i := 0; i < BranchFactor; i++ {
		if node.EmptyBranch(i) {
			continue
		}
		cid := node.ChildNodeID(i)
		ch := node.ChildHash(i)
		if cid.IsLeaf() {
			leaf := self.getLeaf(cid, ch)
			if leaf == nil {
				complete = false
				continue
			}
			ids = append(ids, leaf.id)
			raw = append(raw, leaf.Serialize())
		} else {
			ino := self.getInner(cid, ch)
			if ino == nil {
				complete = false
				continue
			}
			ids = append(ids, ino.id)
			raw = append(raw, ino.Serialize())
		}
	}
	return
}

// AddRootNode installs the serialized root of a tree being pulled.
// Idempotent: a map that already has a populated root reports
// success.
func (self *SHAMap) AddRootNode(raw []byte) error {
	return self.addRootNode(nil, raw)
}

// AddRootNodeChecked is AddRootNode asserting the root hash the
// caller expects.
func (self *SHAMap) AddRootNodeChecked(expected Hash, raw []byte) error {
	return self.addRootNode(&expected, raw)
}

func (self *SHAMap) addRootNode(expected *Hash, raw []byte) error {
	defer self.lock.Locked()()

	if !self.root.empty() {
		mlog.Printf2("shamap/sync", "sm.AddRootNode: already have one")
		if expected != nil && *expected != self.root.hash {
			return fmt.Errorf("%w: have root %s, expected %s",
				ErrHashMismatch, self.root.hash, *expected)
		}
		return nil
	}
	node, err := newInnerNodeFromRaw(NodeID{}, raw, self.seq)
	if err != nil {
		return err
	}
	if expected != nil && node.hash != *expected {
		return fmt.Errorf("%w: root hashes to %s, expected %s",
			ErrHashMismatch, node.hash, *expected)
	}
	mlog.Printf2("shamap/sync", "sm.AddRootNode %s", node.hash)
	self.root = node
	self.inners[node.id] = node
	self.markDirtyInner(node)
	return nil
}

// AddKnownNode attaches a non-root node to the partially built tree.
// The node must hash-match the slot it claims to fill on its already
// resident parent. Duplicate pushes succeed; errors are reported, not
// retried, so an upper layer can blacklist the sender or re-request
// elsewhere.
func (self *SHAMap) AddKnownNode(id NodeID, raw []byte) error {
	defer self.lock.Locked()()

	if id.IsRoot() {
		return fmt.Errorf("%w: AddKnownNode on root", ErrInvariant)
	}
	if !self.synching {
		return fmt.Errorf("%w: AddKnownNode outside synching window", ErrInvariant)
	}
	if id.IsLeaf() {
		if self.checkCacheLeaf(id) {
			return nil
		}
	} else if self.checkCacheInner(id) {
		return nil
	}

	parent := self.WalkTo(id)
	if parent == nil {
		// We should always have a root.
		return fmt.Errorf("%w: no root to walk from", ErrInvariant)
	}
	if parent.id.Depth == id.Depth {
		mlog.Printf2("shamap/sync", "sm.AddKnownNode %v: already had it (late)", id)
		return nil
	}
	if parent.id.Depth != id.Depth-1 {
		// Either the node is broken or we never asked for it.
		return fmt.Errorf("%w: deepest ancestor at depth %d for %v",
			ErrUnhookableNode, parent.id.Depth, id)
	}
	branch := parent.id.SelectBranch(id.Key)
	expected := parent.ChildHash(branch)
	if expected.IsZero() {
		return fmt.Errorf("%w: %v branch %d", ErrEmptySlot, parent.id, branch)
	}

	if id.IsLeaf() {
		leaf, err := newLeafNodeFromRaw(raw, self.seq)
		if err != nil {
			return err
		}
		if leaf.hash != expected {
			return fmt.Errorf("%w: leaf %v hashes to %s, slot wants %s",
				ErrHashMismatch, id, leaf.hash, expected)
		}
		if leaf.id != id {
			return fmt.Errorf("%w: leaf key %s does not derive id %v",
				ErrHashMismatch, leaf.item.Key, id)
		}
		mlog.Printf2("shamap/sync", "sm.AddKnownNode leaf %v", id)
		self.leaves[id] = leaf
		self.markDirtyLeaf(leaf)
		return nil
	}

	node, err := newInnerNodeFromRaw(id, raw, self.seq)
	if err != nil {
		return err
	}
	if node.hash != expected {
		return fmt.Errorf("%w: inner %v hashes to %s, slot wants %s",
			ErrHashMismatch, id, node.hash, expected)
	}
	mlog.Printf2("shamap/sync", "sm.AddKnownNode inner %v", id)
	self.inners[id] = node
	self.markDirtyInner(node)
	return nil
}

// DeepCompare walks both trees in lockstep and reports whether they
// are byte-identical. Root hash equality already implies agreement
// under a collision-free hash; this is the ground-truth oracle for
// tests.
func (self *SHAMap) DeepCompare(other *SHAMap) bool {
	defer self.lock.Locked()()
	defer other.lock.Locked()()

	stack := []*InnerNode{self.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var otherNode *InnerNode
		if node.id.IsRoot() {
			otherNode = other.root
		} else {
			otherNode = other.getInner(node.id, node.hash)
		}
		if otherNode == nil {
			mlog.Printf2("shamap/sync", "sm.DeepCompare: unable to fetch %v", node.id)
			return false
		}
		if otherNode.hash != node.hash {
			mlog.Printf2("shamap/sync", "sm.DeepCompare: hash mismatch at %v", node.id)
			return false
		}
		for i := 0; i < BranchFactor; i++ {
			if node.EmptyBranch(i) != otherNode.EmptyBranch(i) {
				return false
			}
			if node.EmptyBranch(i) {
				continue
			}
			cid := node.ChildNodeID(i)
			ch := node.ChildHash(i)
			if cid.IsLeaf() {
				if self.getLeaf(cid, ch) == nil || other.getLeaf(cid, ch) == nil {
					mlog.Printf2("shamap/sync", "sm.DeepCompare: unable to fetch leaf %v", cid)
					return false
				}
				continue
			}
			next := self.getInner(cid, ch)
			if next == nil {
				mlog.Printf2("shamap/sync", "sm.DeepCompare: unable to fetch inner %v", cid)
				return false
			}
			stack = append(stack, next)
		}
	}
	return true
}
