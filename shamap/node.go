/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 11:02:39 2019 mstenber
 * Last modified: Wed Mar 27 09:55:12 2019 mstenber
 * Edit time:     188 min
 *
 */

package shamap

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fingon/go-shamap/util"
)

// Hash is the 256-bit commitment to a node: SHA-512 truncated to its
// first 32 bytes, computed over the node's wire form.
type Hash [KeySize]byte

var zeroHash Hash

func (self Hash) IsZero() bool {
	return self == zeroHash
}

func (self Hash) String() string {
	return hex.EncodeToString(self[:])
}

// SHA512Half computes the node/item digest over the concatenation of
// the given byte slices.
func SHA512Half(data ...[]byte) Hash {
	d := sha512.Sum512(util.ConcatBytes(data...))
	var r Hash
	copy(r[:], d[:KeySize])
	return r
}

// Error taxonomy of the map; sync callers dispatch on these to decide
// whether a peer is broken or merely behind.
var (
	ErrMalformedNode  = errors.New("malformed node")
	ErrHashMismatch   = errors.New("node hash mismatch")
	ErrUnhookableNode = errors.New("node cannot be hooked to the tree")
	ErrEmptySlot      = errors.New("parent branch for node is empty")
	ErrNotFound       = errors.New("node not found")
	ErrInvariant      = errors.New("internal invariant violation")
	ErrImmutable      = errors.New("map is immutable")
)

const innerWireSize = BranchFactor * KeySize

// InnerNode has 16 branch slots, each holding either a child hash or
// the zero hash for an empty branch. fullBelow is a monotone flag:
// once set, every node reachable from this one is resident locally.
type InnerNode struct {
	id       NodeID
	children [BranchFactor]Hash
	hash     Hash
	seq      uint64

	fullBelow bool
}

func newInnerNode(id NodeID, seq uint64) *InnerNode {
	if id.IsLeaf() {
		panic("inner node at leaf depth")
	}
	n := &InnerNode{id: id, seq: seq}
	n.updateHash()
	return n
}

// newInnerNodeFromRaw deserializes the canonical 16 x 32 byte wire
// form.
func newInnerNodeFromRaw(id NodeID, raw []byte, seq uint64) (*InnerNode, error) {
	if len(raw) != innerWireSize {
		return nil, fmt.Errorf("%w: inner node of %d bytes", ErrMalformedNode, len(raw))
	}
	if id.IsLeaf() {
		return nil, fmt.Errorf("%w: inner node at leaf depth", ErrMalformedNode)
	}
	n := &InnerNode{id: id, seq: seq}
	for i := 0; i < BranchFactor; i++ {
		copy(n.children[i][:], raw[i*KeySize:(i+1)*KeySize])
	}
	n.updateHash()
	return n, nil
}

func (self *InnerNode) ID() NodeID {
	return self.id
}

func (self *InnerNode) Hash() Hash {
	return self.hash
}

func (self *InnerNode) Sequence() uint64 {
	return self.seq
}

func (self *InnerNode) EmptyBranch(branch int) bool {
	return self.children[branch].IsZero()
}

func (self *InnerNode) ChildHash(branch int) Hash {
	return self.children[branch]
}

func (self *InnerNode) ChildNodeID(branch int) NodeID {
	return self.id.ChildID(branch)
}

// empty is true iff every branch slot is empty; the pristine root of
// a fresh map is the one empty inner node a map ever has.
func (self *InnerNode) empty() bool {
	for i := 0; i < BranchFactor; i++ {
		if !self.children[i].IsZero() {
			return false
		}
	}
	return true
}

// Serialize returns the canonical wire form: 16 x 32 bytes of child
// hashes in branch order, empty branches all-zero.
func (self *InnerNode) Serialize() []byte {
	raw := make([]byte, innerWireSize)
	for i := 0; i < BranchFactor; i++ {
		copy(raw[i*KeySize:], self.children[i][:])
	}
	return raw
}

func (self *InnerNode) setChildHash(branch int, h Hash) {
	self.children[branch] = h
	self.updateHash()
}

func (self *InnerNode) updateHash() {
	self.hash = SHA512Half(self.Serialize())
}

func (self *InnerNode) String() string {
	return fmt.Sprintf("InnerNode(%v,%s)", self.id, self.hash)
}

// Item is what leaves hold.
type Item struct {
	Key   Key
	Value []byte
}

// LeafNode holds one item. Its hash is the digest of key ‖ payload.
type LeafNode struct {
	id   NodeID
	item Item
	hash Hash
	seq  uint64
}

func newLeafNode(item Item, seq uint64) *LeafNode {
	n := &LeafNode{id: NodeID{Depth: LeafDepth, Key: item.Key}, item: item, seq: seq}
	n.hash = SHA512Half(item.Key[:], item.Value)
	return n
}

// newLeafNodeFromRaw deserializes 32-byte key ‖ payload. Payload may
// be empty; shorter input cannot be a leaf.
func newLeafNodeFromRaw(raw []byte, seq uint64) (*LeafNode, error) {
	if len(raw) < KeySize {
		return nil, fmt.Errorf("%w: leaf node of %d bytes", ErrMalformedNode, len(raw))
	}
	var item Item
	copy(item.Key[:], raw[:KeySize])
	item.Value = append([]byte(nil), raw[KeySize:]...)
	return newLeafNode(item, seq), nil
}

func (self *LeafNode) ID() NodeID {
	return self.id
}

func (self *LeafNode) Hash() Hash {
	return self.hash
}

func (self *LeafNode) Sequence() uint64 {
	return self.seq
}

func (self *LeafNode) Item() Item {
	return self.item
}

// Serialize returns the canonical wire form; the payload length is
// carried out-of-band by the enclosing frame.
func (self *LeafNode) Serialize() []byte {
	raw := make([]byte, KeySize+len(self.item.Value))
	copy(raw, self.item.Key[:])
	copy(raw[KeySize:], self.item.Value)
	return raw
}

func (self *LeafNode) String() string {
	return fmt.Sprintf("LeafNode(%v,%s)", self.id, self.hash)
}
