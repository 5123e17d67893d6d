/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 10:21:33 2019 mstenber
 * Last modified: Fri Mar 22 11:48:09 2019 mstenber
 * Edit time:     54 min
 *
 */

// mlog is maybe-log. It is a small wrapper of the standard 'log'
// which prints only what the MLOG environment variable (or -mlog
// flag) pattern selects; with no pattern set, calls are almost free.
//
// Printf2 is the call of choice: the caller supplies its own
// file-ish tag ("pkg/file") so no runtime.Caller is needed on the
// fast path.
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-shamap/util/gid"
)

var logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)

var flagPattern = flag.String("mlog", "", "Enable logging based on the given file/line regular expression")

// enabled is 0 = unknown, 1 = disabled, 2 = enabled; atomic access.
var enabled int32

var mutex sync.Mutex

// Everything below is used only with mutex held
var patternRegexp *regexp.Regexp
var tag2Debug map[string]bool
var minDepth = maxDepth
var callers = make([]uintptr, maxDepth)

const maxDepth = 100

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	st := atomic.LoadInt32(&enabled)
	if st == 0 {
		mutex.Lock()
		st = initialize()
		mutex.Unlock()
	}
	return st == 2
}

// SetPattern sets the logging pattern by hand, overriding the
// environment. The returned undo function restores the previous one.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := ""
	if patternRegexp != nil {
		old = patternRegexp.String()
	}
	setPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		setPattern(old)
	}
}

func setPattern(p string) {
	tag2Debug = make(map[string]bool)
	if p == "" {
		patternRegexp = nil
		atomic.StoreInt32(&enabled, 1)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	atomic.StoreInt32(&enabled, 2)
}

func initialize() int32 {
	st := atomic.LoadInt32(&enabled)
	if st != 0 {
		return st
	}
	p := os.Getenv("MLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	setPattern(p)
	return atomic.LoadInt32(&enabled)
}

// Printf is a drop-in replacement of log.Printf. It pays for a
// runtime.Caller on every call if mlog is enabled at all; prefer
// Printf2.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&enabled) == 1 {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 logs if the given tag matches the configured pattern. Call
// stack depth is baked into indentation to facilitate tracing.
func Printf2(tag string, format string, args ...interface{}) {
	if atomic.LoadInt32(&enabled) == 1 {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if initialize() == 1 {
		return
	}
	debug, ok := tag2Debug[tag]
	if !ok {
		debug = patternRegexp.FindString(tag) != ""
		tag2Debug[tag] = debug
	}
	if !debug {
		return
	}
	depth := runtime.Callers(1, callers)
	if depth < minDepth {
		minDepth = depth
	}
	depth -= minDepth
	if depth > 0 {
		format = fmt.Sprint(strings.Repeat(".", depth), format)
	}
	format = fmt.Sprintf("%8d %s", gid.GetGoroutineID(), format)
	logger.Printf(format, args...)
}
