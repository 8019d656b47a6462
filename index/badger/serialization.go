// Copyright 2026 Civintel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"github.com/civintel/knowbase/index"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// vectorSer serializes the embedding slice with raw float32 elements.
var vectorSer = ord.NewSliceSer[float32](raw.Float32)

// entryMUS is the MUS-format serializer for index entries.
type entryMUS struct{}

// EntryMUS serializes index entries for storage.
var EntryMUS = entryMUS{}

// Marshal writes the entry into bs and returns the number of bytes written.
func (entryMUS) Marshal(e index.Entry, bs []byte) (n int) {
	n = varint.Uint64.Marshal(e.ChunkID, bs)
	n += varint.Uint64.Marshal(e.DocID, bs[n:])
	n += ord.String.Marshal(e.Jurisdiction, bs[n:])
	n += ord.String.Marshal(e.Industry, bs[n:])
	n += ord.String.Marshal(e.DocType, bs[n:])
	n += vectorSer.Marshal(e.Vector, bs[n:])
	return n
}

// Unmarshal reads an entry from bs.
func (entryMUS) Unmarshal(bs []byte) (e index.Entry, n int, err error) {
	var m int
	if e.ChunkID, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	if e.DocID, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if e.Jurisdiction, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if e.Industry, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if e.DocType, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if e.Vector, m, err = vectorSer.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

// Size returns the serialized size of the entry.
func (entryMUS) Size(e index.Entry) (size int) {
	size = varint.Uint64.Size(e.ChunkID)
	size += varint.Uint64.Size(e.DocID)
	size += ord.String.Size(e.Jurisdiction)
	size += ord.String.Size(e.Industry)
	size += ord.String.Size(e.DocType)
	size += vectorSer.Size(e.Vector)
	return size
}

// MarshalEntry serializes an Entry to bytes.
func MarshalEntry(entry *index.Entry) []byte {
	buf := make([]byte, EntryMUS.Size(*entry))
	EntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalEntry deserializes an Entry from bytes.
func UnmarshalEntry(data []byte) (*index.Entry, error) {
	entry, _, err := EntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
