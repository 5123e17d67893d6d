/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 10:31:14 2019 mstenber
 * Last modified: Fri Mar 29 11:09:52 2019 mstenber
 * Edit time:     147 min
 *
 */

// storage package is the snapshotter sitting next to the shamap core:
// it drains a map's dirty sets to a Backend and rebuilds maps from
// one. Payloads go through a codec chain with the node hash as
// additional data, so what sits on disk is also authenticated against
// the id it is stored under.
package storage

import (
	"fmt"

	"github.com/fingon/go-shamap/codec"
	"github.com/fingon/go-shamap/mlog"
	"github.com/fingon/go-shamap/shamap"
)

// missingBatch is the sync fan-out budget used when rebuilding a map
// from the backend.
const missingBatch = 128

type Storage struct {
	Backend Backend
	Codec   codec.Codec

	reads, writes, readbytes, writebytes int
}

// Init sets up the default values to be usable
func (self Storage) Init() *Storage {
	// No need to special case Codec = nil elsewhere with this
	if self.Codec == nil {
		self.Codec = &codec.CodecChain{}
	}
	return &self
}

func (self *Storage) Close() {
	self.Backend.Close()
}

// Persist drains the map's dirty sets into the backend and points
// name at the map's root hash. The map's sequence advances so
// subsequently written nodes belong to the next snapshot. Returns the
// number of nodes actually written.
func (self *Storage) Persist(m *shamap.SHAMap, name string) (ops int, err error) {
	inners, leaves := m.PopDirty()
	mlog.Printf2("storage/storage", "st.Persist %s: %d+%d dirty", name, len(inners), len(leaves))
	for _, n := range inners {
		wrote, err := self.storeNode(n.Hash(), n.Serialize())
		if err != nil {
			return ops, err
		}
		if wrote {
			ops++
		}
	}
	for _, n := range leaves {
		wrote, err := self.storeNode(n.Hash(), n.Serialize())
		if err != nil {
			return ops, err
		}
		if wrote {
			ops++
		}
	}
	root := m.RootHash()
	self.Backend.SetNameToRoot(name, string(root[:]))
	m.AdvanceSequence()
	mlog.Printf2("storage/storage", " %d written (%d b)", ops, self.writebytes)
	return ops, nil
}

func (self *Storage) storeNode(h shamap.Hash, raw []byte) (wrote bool, err error) {
	id := string(h[:])
	if self.Backend.HasNode(id) {
		// Content-addressed; identical payload is already there.
		return false, nil
	}
	data, err := self.Codec.EncodeBytes(raw, h[:])
	if err != nil {
		return false, err
	}
	self.Backend.StoreNode(id, data)
	self.writes++
	self.writebytes += len(data)
	return true, nil
}

// Load rebuilds the map the name points at by driving the core's own
// ingest path: AddRootNode followed by a GetMissingNodes / fetch /
// AddKnownNode loop. On-disk corruption therefore surfaces as the
// sync engine's consistency errors.
func (self *Storage) Load(name string, trackDirty bool) (*shamap.SHAMap, error) {
	rootid := self.Backend.GetRootByName(name)
	if rootid == "" {
		return nil, fmt.Errorf("%w: no root named %s", shamap.ErrNotFound, name)
	}
	mlog.Printf2("storage/storage", "st.Load %s root %x", name, rootid)
	var expected shamap.Hash
	copy(expected[:], rootid)

	m := shamap.SHAMap{TrackDirty: trackDirty}.Init()
	m.SetSynching()
	raw, err := self.loadNode(expected)
	if err != nil {
		return nil, err
	}
	if err = m.AddRootNodeChecked(expected, raw); err != nil {
		return nil, err
	}
	for {
		ids, hashes := m.GetMissingNodes(missingBatch)
		if len(ids) == 0 {
			break
		}
		for i, id := range ids {
			raw, err = self.loadNode(hashes[i])
			if err != nil {
				return nil, err
			}
			if err = m.AddKnownNode(id, raw); err != nil {
				return nil, err
			}
		}
	}
	m.ClearSynching()
	return m, nil
}

func (self *Storage) loadNode(h shamap.Hash) ([]byte, error) {
	data := self.Backend.GetNodeData(string(h[:]))
	if data == nil {
		return nil, fmt.Errorf("%w: node %s", shamap.ErrNotFound, h)
	}
	raw, err := self.Codec.DecodeBytes(data, h[:])
	if err != nil {
		return nil, err
	}
	self.reads++
	self.readbytes += len(data)
	return raw, nil
}
