package storage

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrNameTaken is returned by app creates and renames that collide with a
// committed (space, name) pair. The storage-layer guard behind it is the
// authoritative resolution of concurrent same-name writes.
var ErrNameTaken = errors.New("name must be unique in space")
