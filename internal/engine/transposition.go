package engine

import (
	"encoding/binary"

	"github.com/hailam/chessplay/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint32     // Upper 32 bits of Zobrist hash for verification
	BestMove board.Move // Best move found
	Score    int16      // Score (bounded by flag)
	Depth    int8       // Search depth
	Flag     TTFlag     // Type of bound
	Age      uint8      // Generation for replacement
}

// TranspositionTable is a hash table for storing search results.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64
	mask    uint64
	age     uint8

	// Statistics
	hits   uint64
	probes uint64
}

// MinHashSizeMB and MaxHashSizeMB bound the UCI "Hash" option.
const (
	MinHashSizeMB     = 1
	MaxHashSizeMB     = 65536
	DefaultHashSizeMB = 32
)

// NewTranspositionTable creates a transposition table with the given size in
// MB, clamped to [MinHashSizeMB, MaxHashSizeMB]. If the requested size can't
// actually be allocated, it is halved and retried until it fits.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < MinHashSizeMB {
		sizeMB = MinHashSizeMB
	}
	if sizeMB > MaxHashSizeMB {
		sizeMB = MaxHashSizeMB
	}

	const entrySize = uint64(16) // Key+BestMove+Score+Depth+Flag+Age, padded to 16 bytes

	for sizeMB >= MinHashSizeMB {
		numEntries := roundDownToPowerOf2((uint64(sizeMB) * 1024 * 1024) / entrySize)
		entries, ok := allocEntries(numEntries)
		if ok {
			return &TranspositionTable{
				entries: entries,
				size:    numEntries,
				mask:    numEntries - 1,
			}
		}
		sizeMB /= 2
	}

	// Fall back to the smallest legal size; if even this fails, let it panic.
	numEntries := roundDownToPowerOf2((uint64(MinHashSizeMB) * 1024 * 1024) / entrySize)
	return &TranspositionTable{
		entries: make([]TTEntry, numEntries),
		size:    numEntries,
		mask:    numEntries - 1,
	}
}

// allocEntries attempts to allocate the entry slice, recovering from an
// out-of-memory panic so the caller can retry at half the size.
func allocEntries(numEntries uint64) (entries []TTEntry, ok bool) {
	defer func() {
		if recover() != nil {
			entries, ok = nil, false
		}
	}()
	return make([]TTEntry, numEntries), true
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe looks up a position in the transposition table.
// Returns the entry and true if found, otherwise returns empty entry and false.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++

	idx := hash & tt.mask
	entry := tt.entries[idx]

	// Verify the key matches
	if entry.Key == uint32(hash>>32) && entry.Depth > 0 {
		tt.hits++
		return entry, true
	}

	return TTEntry{}, false
}

// Store saves a position in the transposition table.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	idx := hash & tt.mask
	entry := &tt.entries[idx]

	// Replace unless the resident record is from the current search, strictly
	// deeper, and the incoming record isn't an EXACT score: a fresh EXACT
	// score is always worth the overwrite, but a deep bound from this same
	// search is worth keeping over a shallower one.
	keepResident := entry.Age == tt.age && int(entry.Depth) > depth && flag != TTExact

	if !keepResident {
		entry.Key = uint32(hash >> 32)
		entry.BestMove = bestMove
		entry.Score = int16(score)
		entry.Depth = int8(depth)
		entry.Flag = flag
		entry.Age = tt.age
	}
}

// NewSearch increments the age counter for a new search.
// This helps with replacement decisions.
func (tt *TranspositionTable) NewSearch() {
	tt.age++
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
	tt.age = 0
	tt.hits = 0
	tt.probes = 0
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	// Sample first 1000 entries
	used := 0
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}

	for i := 0; i < sampleSize; i++ {
		if tt.entries[i].Depth > 0 && tt.entries[i].Age == tt.age {
			used++
		}
	}

	return (used * 1000) / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT adjusts a score read from the transposition table.
// Mate scores need to be adjusted based on ply distance.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}

// snapshotEntrySize is the wire size of one persisted entry: Key(4) +
// BestMove(4) + Score(2) + Depth(1) + Flag(1) + Age(1).
const snapshotEntrySize = 13

// Serialize encodes every occupied entry in the table for persistence
// (UCI PersistHash, §4P). The resulting blob is opaque and only meaningful
// to LoadSnapshot on a table of the same size.
func (tt *TranspositionTable) Serialize() []byte {
	buf := make([]byte, 0, 8+snapshotEntrySize*tt.size/4)
	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, tt.size)
	buf = append(buf, header...)

	var rec [snapshotEntrySize]byte
	for i := range tt.entries {
		e := &tt.entries[i]
		if e.Depth == 0 {
			continue
		}
		binary.LittleEndian.PutUint64(header, uint64(i))
		binary.LittleEndian.PutUint32(rec[0:4], e.Key)
		binary.LittleEndian.PutUint32(rec[4:8], uint32(e.BestMove))
		binary.LittleEndian.PutUint16(rec[8:10], uint16(e.Score))
		rec[10] = byte(e.Depth)
		rec[11] = byte(e.Flag)
		rec[12] = e.Age
		buf = append(buf, header...)
		buf = append(buf, rec[:]...)
	}
	return buf
}

// LoadSnapshot restores entries from a blob produced by Serialize. Entries
// belonging to a differently-sized table are discarded; a corrupt or
// truncated blob stops replay early rather than panicking, per §7's
// "persistent-store failures degrade to in-memory-only" policy.
func (tt *TranspositionTable) LoadSnapshot(data []byte) {
	if len(data) < 8 {
		return
	}
	savedSize := binary.LittleEndian.Uint64(data[0:8])
	if savedSize != tt.size {
		return
	}

	const recordSize = 8 + snapshotEntrySize
	offset := 8
	for offset+recordSize <= len(data) {
		idx := binary.LittleEndian.Uint64(data[offset : offset+8])
		rec := data[offset+8 : offset+recordSize]
		offset += recordSize

		if idx >= tt.size {
			continue
		}
		e := &tt.entries[idx]
		e.Key = binary.LittleEndian.Uint32(rec[0:4])
		e.BestMove = board.Move(binary.LittleEndian.Uint32(rec[4:8]))
		e.Score = int16(binary.LittleEndian.Uint16(rec[8:10]))
		e.Depth = int8(rec[10])
		e.Flag = TTFlag(rec[11])
		e.Age = rec[12]
	}
}
