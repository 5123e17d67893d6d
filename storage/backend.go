/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 10:05:31 2019 mstenber
 * Last modified: Tue Mar 26 12:11:08 2019 mstenber
 * Edit time:     22 min
 *
 */

package storage

// BackendConfiguration is the part of backend setup that is common to
// all backends.
type BackendConfiguration struct {
	// Directory the backend keeps its state in (ignored by
	// non-persistent backends).
	Directory string
}

// Backend is the shadow behind the throne; it actually handles the
// low-level storage of nodes. Nodes are content-addressed: the id is
// the string form of the 256-bit node hash, so a stored node never
// changes and a backend may be shared by concurrent readers.
type Backend interface {
	// Init makes the instance actually useful
	Init(config BackendConfiguration)

	// Close the backend
	Close()

	// GetNodeData returns the stored payload for the id, or nil.
	GetNodeData(id string) []byte

	// HasNode is the cheap existence test.
	HasNode(id string) bool

	// StoreNode adds a node payload. Storing the same id again is
	// a no-op by content addressing.
	StoreNode(id string, data []byte)

	// GetRootByName returns the node id the name points at, or "".
	GetRootByName(name string) string

	// SetNameToRoot points a logical name at a root node id.
	SetNameToRoot(name, id string)
}
