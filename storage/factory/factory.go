/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 09:55:03 2019 mstenber
 * Last modified: Tue Mar 26 13:20:26 2019 mstenber
 * Edit time:     33 min
 *
 */

package factory

import (
	"github.com/fingon/go-shamap/codec"
	"github.com/fingon/go-shamap/mlog"
	"github.com/fingon/go-shamap/storage"
	"github.com/fingon/go-shamap/storage/badger"
	"github.com/fingon/go-shamap/storage/bolt"
	"github.com/fingon/go-shamap/storage/inmemory"
)

type factoryCallback func() storage.Backend

var backendFactories = map[string]factoryCallback{
	"inmemory": func() storage.Backend {
		return inmemory.NewInMemoryBackend()
	},
	"badger": func() storage.Backend {
		return badger.NewBadgerBackend()
	},
	"bolt": func() storage.Backend {
		return bolt.NewBoltBackend()
	}}

func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	return keys
}

func New(name, dir string) storage.Backend {
	var config storage.BackendConfiguration
	config.Directory = dir
	return NewWithConfig(name, config)
}

func NewWithConfig(name string, config storage.BackendConfiguration) storage.Backend {
	mlog.Printf2("storage/factory/factory", "f.NewWithConfig %v %v", name, config)
	be := backendFactories[name]()
	be.Init(config)
	return be
}

type CryptoStorageConfiguration struct {
	storage.BackendConfiguration
	BackendName    string
	Password, Salt string
	Iterations     int
}

// NewCryptoStorage assembles a Storage whose at-rest payloads are
// compressed and, with a password set, encrypted.
func NewCryptoStorage(config CryptoStorageConfiguration) *storage.Storage {
	mlog.Printf2("storage/factory/factory", "f.NewCryptoStorage")
	iterations := config.Iterations
	if iterations == 0 {
		iterations = 12345
	}
	salt := config.Salt
	if salt == "" {
		salt = "asdf"
	}
	var c codec.Codec = &codec.CompressingCodec{}
	if config.Password != "" {
		c1 := codec.EncryptingCodec{}.Init(
			[]byte(config.Password), []byte(salt), iterations)
		c = codec.CodecChain{}.Init(c1, c)
	}
	be := NewWithConfig(config.BackendName, config.BackendConfiguration)
	return storage.Storage{Backend: be, Codec: c}.Init()
}
