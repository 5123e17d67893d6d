/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 13:40:28 2019 mstenber
 * Last modified: Tue Mar 26 13:01:17 2019 mstenber
 * Edit time:     41 min
 *
 */

package bolt

import (
	"fmt"
	"log"

	bbolt "github.com/coreos/bbolt"

	"github.com/fingon/go-shamap/mlog"
	"github.com/fingon/go-shamap/storage"
)

var dataKey = []byte("data")
var nameKey = []byte("name")

// boltBackend provides on-disk storage.
//
// - data bucket: node id (hash) -> payload (immutable)
// - name bucket: name -> root node id
type boltBackend struct {
	db *bbolt.DB
}

var _ storage.Backend = &boltBackend{}

func NewBoltBackend() storage.Backend {
	return &boltBackend{}
}

func (self *boltBackend) Init(config storage.BackendConfiguration) {
	db, err := bbolt.Open(fmt.Sprintf("%s/bbolt.db", config.Directory), 0600, nil)
	if err != nil {
		log.Fatal("bbolt.Open", err)
	}
	self.db = db
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(dataKey); err != nil {
			log.Panic(err)
		}
		if _, err := tx.CreateBucketIfNotExists(nameKey); err != nil {
			log.Panic(err)
		}
		return nil
	})
	if err != nil {
		log.Panic(err)
	}
}

func (self *boltBackend) Close() {
	self.db.Close()
}

func (self *boltBackend) GetNodeData(id string) (v []byte) {
	self.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataKey).Get([]byte(id))
		if b != nil {
			// b is valid only within the transaction
			v = append([]byte(nil), b...)
		}
		return nil
	})
	return
}

func (self *boltBackend) HasNode(id string) (ok bool) {
	self.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(dataKey).Get([]byte(id)) != nil
		return nil
	})
	return
}

func (self *boltBackend) StoreNode(id string, data []byte) {
	mlog.Printf2("storage/bolt/bolt", "bbolt.StoreNode %x (%d b)", id, len(data))
	self.db.Update(func(tx *bbolt.Tx) error {
		tx.Bucket(dataKey).Put([]byte(id), data)
		return nil
	})
}

func (self *boltBackend) GetRootByName(name string) (s string) {
	self.db.View(func(tx *bbolt.Tx) error {
		s = string(tx.Bucket(nameKey).Get([]byte(name)))
		return nil
	})
	return
}

func (self *boltBackend) SetNameToRoot(name, id string) {
	mlog.Printf2("storage/bolt/bolt", "bbolt.SetNameToRoot %s = %x", name, id)
	self.db.Update(func(tx *bbolt.Tx) error {
		tx.Bucket(nameKey).Put([]byte(name), []byte(id))
		return nil
	})
}
