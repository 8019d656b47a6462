package badger

import "fmt"

// Key prefixes for index data
const (
	entryPrefix = "vecent"
)

// makeEntryKey generates the storage key for a chunk's vector entry.
func makeEntryKey(chunkID uint64) []byte {
	return []byte(fmt.Sprintf("%s:%d", entryPrefix, chunkID))
}
