/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 11:14:09 2019 mstenber
 * Last modified: Tue Mar 26 12:14:55 2019 mstenber
 * Edit time:     19 min
 *
 */

package inmemory

import (
	"github.com/fingon/go-shamap/mlog"
	"github.com/fingon/go-shamap/storage"
	"github.com/fingon/go-shamap/util"
)

// inMemoryBackend provides in-memory storage; data is always
// assumed to be available and is just stored in maps.
type inMemoryBackend struct {
	id2Data   map[string][]byte
	name2Root map[string]string
	lock      util.MutexLocked
}

var _ storage.Backend = &inMemoryBackend{}

func NewInMemoryBackend() storage.Backend {
	self := &inMemoryBackend{}
	self.id2Data = make(map[string][]byte)
	self.name2Root = make(map[string]string)
	return self
}

func (self *inMemoryBackend) Init(config storage.BackendConfiguration) {
}

func (self *inMemoryBackend) Close() {
}

func (self *inMemoryBackend) GetNodeData(id string) []byte {
	defer self.lock.Locked()()
	return self.id2Data[id]
}

func (self *inMemoryBackend) HasNode(id string) bool {
	defer self.lock.Locked()()
	_, ok := self.id2Data[id]
	return ok
}

func (self *inMemoryBackend) StoreNode(id string, data []byte) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory", "im.StoreNode %x (%d b)", id, len(data))
	self.id2Data[id] = data
}

func (self *inMemoryBackend) GetRootByName(name string) string {
	defer self.lock.Locked()()
	return self.name2Root[name]
}

func (self *inMemoryBackend) SetNameToRoot(name, id string) {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory", "im.SetNameToRoot %s = %x", name, id)
	self.name2Root[name] = id
}
