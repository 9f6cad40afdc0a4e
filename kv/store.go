// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The Antfly Authors
// (modifications)
// This file is part of Antfly.
//
// Antfly is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Antfly is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Antfly. If not, see <http://www.gnu.org/licenses/>.

// Package kv defines the durable key/value blob store the core consumes
// (spec §6). The core never depends on a concrete backend directly — only
// on the Store interface — so mdbx (kv/mdbxkv), bbolt (kv/boltkv), or an
// in-memory map (kv/memkv) are interchangeable.
package kv

import "context"

// Store is the minimal durable byte-blob store the collection manager, the
// posting store, and the dictionary/index packages persist through. Values
// are opaque; the format version byte convention (§6) is the caller's
// concern, not the Store's.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	// Scan calls fn for every key with the given prefix in ascending key
	// order. Scan stops early if fn returns false.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error
	// Batch applies puts and then deletes atomically with respect to Get/Scan
	// observers — used by the collection manager's write-path rollback (§4.1).
	Batch(ctx context.Context, puts map[string][]byte, deletes [][]byte) error
	Close() error
}
