/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 10:11:40 2019 mstenber
 * Last modified: Thu Mar 21 14:02:11 2019 mstenber
 * Edit time:     31 min
 *
 */

package util

import (
	"sync"
	"sync/atomic"

	"github.com/fingon/go-shamap/util/gid"
)

// RMutexLocked is a recursive mutex with convenience features (just
// defer x.Locked()()). It is also not particularly fast because
// golang does not provide a way of getting the current goroutine id
// without crawling the stack.
type RMutexLocked struct {
	// mut is used by non-owners to request access
	mut sync.Mutex

	// ownerMut guards owner/timesOwned
	ownerMut sync.Mutex

	owner      uint64
	timesOwned int64
}

func (self *RMutexLocked) Lock() {
	g := gid.GetGoroutineID()
	if atomic.LoadUint64(&self.owner) == g {
		self.ownerMut.Lock()
		if self.owner == g {
			self.timesOwned++
			self.ownerMut.Unlock()
			return
		}
		self.ownerMut.Unlock()
	}
	self.mut.Lock()
	atomic.StoreUint64(&self.owner, g)
	self.ownerMut.Lock()
	self.timesOwned = 1
	self.ownerMut.Unlock()
}

func (self *RMutexLocked) Unlock() {
	self.ownerMut.Lock()
	self.timesOwned--
	if self.timesOwned == 0 {
		atomic.StoreUint64(&self.owner, 0)
		self.mut.Unlock()
	}
	self.ownerMut.Unlock()
}

func (self *RMutexLocked) Locked() (unlock func()) {
	self.Lock()
	return func() {
		self.Unlock()
	}
}

type MutexLocked sync.Mutex

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return func() {
		mut.Unlock()
	}
}
