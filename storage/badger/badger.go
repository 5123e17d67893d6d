/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 14:22:10 2019 mstenber
 * Last modified: Tue Mar 26 13:09:41 2019 mstenber
 * Edit time:     38 min
 *
 */

package badger

import (
	"log"

	"github.com/dgraph-io/badger"
	"github.com/fingon/go-shamap/mlog"
	"github.com/fingon/go-shamap/storage"
)

// badgerBackend provides on-disk storage.
//
// - key prefix 2 + node id -> payload (immutable)
// - key prefix 3 + name -> root node id
type badgerBackend struct {
	db *badger.DB
}

var _ storage.Backend = &badgerBackend{}

func NewBadgerBackend() storage.Backend {
	return &badgerBackend{}
}

func (self *badgerBackend) Init(config storage.BackendConfiguration) {
	opts := badger.DefaultOptions
	opts.Dir = config.Directory
	opts.ValueDir = config.Directory
	db, err := badger.Open(opts)
	if err != nil {
		log.Panic("badger.Open", err)
	}
	self.db = db
}

func (self *badgerBackend) Close() {
	self.db.Close()
}

func (self *badgerBackend) getKKValue(prefix, suffix []byte) (v []byte, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		k := append(prefix, suffix...)
		i, err := txn.Get(k)
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	return
}

func (self *badgerBackend) setKKValue(prefix, suffix, value []byte) {
	err := self.db.Update(func(txn *badger.Txn) error {
		k := append(prefix, suffix...)
		return txn.Set(k, value)
	})
	if err != nil {
		log.Panic("set", err)
	}
}

func (self *badgerBackend) GetNodeData(id string) []byte {
	v, err := self.getKKValue([]byte("2"), []byte(id))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		log.Panic("get error:", err)
	}
	return v
}

func (self *badgerBackend) HasNode(id string) bool {
	_, err := self.getKKValue([]byte("2"), []byte(id))
	if err == badger.ErrKeyNotFound {
		return false
	}
	if err != nil {
		log.Panic("get error:", err)
	}
	return true
}

func (self *badgerBackend) StoreNode(id string, data []byte) {
	mlog.Printf2("storage/badger/badger", "bad.StoreNode %x (%d b)", id, len(data))
	self.setKKValue([]byte("2"), []byte(id), data)
}

func (self *badgerBackend) GetRootByName(name string) string {
	v, err := self.getKKValue([]byte("3"), []byte(name))
	if err == badger.ErrKeyNotFound {
		return ""
	}
	if err != nil {
		log.Panic("get error:", err)
	}
	return string(v)
}

func (self *badgerBackend) SetNameToRoot(name, id string) {
	mlog.Printf2("storage/badger/badger", "bad.SetNameToRoot %s = %x", name, id)
	self.setKKValue([]byte("3"), []byte(name), []byte(id))
}
