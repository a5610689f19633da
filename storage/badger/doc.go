// Package badger implements the storage interfaces on BadgerDB, an embedded
// key-value store. Entries are serialized with MUS binary encoding.
package badger
