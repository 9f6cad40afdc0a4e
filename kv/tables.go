// Copyright 2021 The Erigon Authors
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

package kv

import (
	"fmt"
	"strconv"
	"strings"
)

// BlobSchemaVersion is the single leading version byte every persisted blob
// carries (§6): bump it whenever a blob's encoding changes incompatibly.
const BlobSchemaVersion byte = 1

// Key namespaces (§6 keyspace). Layout:
//
//	coll/<name>/meta                collection metadata (seq counter, flags)
//	coll/<name>/schema               serialized Schema
//	doc/<name>/<seq>                 raw document blob
//	idx/<name>/<field>/<token-pfx>/  posting/dictionary/index derived keys
//	seq/<name>                       next sequence id counter
const (
	collPrefix = "coll/"
	docPrefix  = "doc/"
	idxPrefix  = "idx/"
	seqPrefix  = "seq/"
)

func CollMetaKey(coll string) []byte {
	return []byte(collPrefix + coll + "/meta")
}

func CollSchemaKey(coll string) []byte {
	return []byte(collPrefix + coll + "/schema")
}

func CollPrefixKey(coll string) []byte {
	return []byte(collPrefix + coll + "/")
}

func DocKey(coll string, seq uint64) []byte {
	return []byte(docPrefix + coll + "/" + strconv.FormatUint(seq, 10))
}

func DocPrefixKey(coll string) []byte {
	return []byte(docPrefix + coll + "/")
}

// SeqFromDocKey extracts the sequence id from a key produced by DocKey.
func SeqFromDocKey(coll string, key []byte) (uint64, error) {
	prefix := docPrefix + coll + "/"
	s := string(key)
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("key %q is not a doc key for collection %q", s, coll)
	}
	return strconv.ParseUint(s[len(prefix):], 10, 64)
}

func IdxFieldPrefixKey(coll, field string) []byte {
	return []byte(idxPrefix + coll + "/" + field + "/")
}

func IdxTokenKey(coll, field, token string) []byte {
	return []byte(idxPrefix + coll + "/" + field + "/" + token)
}

func SeqCounterKey(coll string) []byte {
	return []byte(seqPrefix + coll)
}

// Numeric index keys live under idx/<coll>/<field>/num/<sortable-key> so a
// prefix scan replays the ordered value -> seq-id-set map on recovery.
func IdxNumPrefixKey(coll, field string) []byte {
	return []byte(idxPrefix + coll + "/" + field + "/num/")
}

func IdxNumKey(coll, field string, sortKey []byte) []byte {
	return append(IdxNumPrefixKey(coll, field), sortKey...)
}

// Geo index keys live under idx/<coll>/<field>/geo/<cell-id, big-endian>.
func IdxGeoPrefixKey(coll, field string) []byte {
	return []byte(idxPrefix + coll + "/" + field + "/geo/")
}

func IdxGeoCellKey(coll, field string, cellID uint64) []byte {
	key := IdxGeoPrefixKey(coll, field)
	key = append(key, byte(cellID>>56), byte(cellID>>48), byte(cellID>>40), byte(cellID>>32),
		byte(cellID>>24), byte(cellID>>16), byte(cellID>>8), byte(cellID))
	return key
}

// Geo polygon vertex lists are stored separately, keyed by the polygon's
// seq-id, since exact containment needs the full loop, not just cells.
func IdxGeoPolyPrefixKey(coll, field string) []byte {
	return []byte(idxPrefix + coll + "/" + field + "/poly/")
}

func IdxGeoPolyKey(coll, field string, seq uint64) []byte {
	return []byte(idxPrefix + coll + "/" + field + "/poly/" + strconv.FormatUint(seq, 10))
}
