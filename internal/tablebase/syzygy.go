package tablebase

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/storage"
)

// SyzygyProber is the local-Syzygy-directory tier of §4Q's adapter: it
// checks whether a local file covers the position's exact material
// signature before trusting a WDL result to fallback at all, so a miss on
// disk never silently falls through to a network query mid-search.
//
// No pure-Go Syzygy (.rtbw/.rtbz) reader is available in this tree, so a
// local-file hit still has to be resolved through fallback rather than
// decoded directly; that limitation is confined to this one prober.
type SyzygyProber struct {
	path      string
	maxPieces int
	available bool
	fallback  Prober
	mu        sync.RWMutex
}

// NewSyzygyProber creates a local-tablebase prober rooted at path, falling
// back to the online adapter for positions the local directory doesn't
// cover. An empty path uses DefaultCacheDir.
func NewSyzygyProber(path string) *SyzygyProber {
	return NewSyzygyProberWithStore(path, nil)
}

// NewSyzygyProberWithStore is NewSyzygyProber, but memoizes the online
// fallback's root probes through store (§4P) instead of an in-process map
// that's lost on restart. A nil store behaves exactly like NewSyzygyProber.
func NewSyzygyProberWithStore(path string, store *storage.Storage) *SyzygyProber {
	if path == "" {
		path = DefaultCacheDir()
	}

	sp := &SyzygyProber{
		path:     path,
		fallback: NewCachedProber(NewLichessProber(), store),
	}
	sp.refresh()
	return sp
}

// refresh rescans path and updates the advertised maxPieces/available state.
func (sp *SyzygyProber) refresh() {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if _, err := os.Stat(sp.path); os.IsNotExist(err) {
		sp.available = false
		sp.maxPieces = 0
		log.Printf("[Tablebase] local path %s absent, using online fallback only", sp.path)
		return
	}

	sp.maxPieces = maxPiecesAvailable(sp.path)
	sp.available = sp.maxPieces > 0

	if sp.available {
		log.Printf("[Tablebase] found local files at %s (max %d pieces)", sp.path, sp.maxPieces)
	} else {
		log.Printf("[Tablebase] no local files at %s, using online fallback only", sp.path)
	}
}

// SetPath updates the local tablebase directory and rescans it.
func (sp *SyzygyProber) SetPath(path string) {
	if path == "" {
		path = DefaultCacheDir()
	}
	sp.path = path
	sp.refresh()
}

// hasLocalFile reports whether pos's exact material signature is covered by
// a local file, gating the costlier fallback probe below.
func (sp *SyzygyProber) hasLocalFile(pos *board.Position) bool {
	sp.mu.RLock()
	path := sp.path
	sp.mu.RUnlock()

	material := positionToMaterial(pos)
	wdlPath := filepath.Join(path, material+".rtbw")
	dtzPath := filepath.Join(path, material+".rtbz")
	_, wdlErr := os.Stat(wdlPath)
	_, dtzErr := os.Stat(dtzPath)
	return wdlErr == nil && dtzErr == nil
}

// Probe only ever runs the (non-network, memo-backed) fallback once the
// position's material signature is confirmed present on disk, keeping an
// in-search node from paying for a directory scan it can't use anyway.
func (sp *SyzygyProber) Probe(pos *board.Position) ProbeResult {
	if CountPieces(pos) > sp.MaxPieces() {
		return ProbeResult{Found: false}
	}
	if !sp.hasLocalFile(pos) {
		return ProbeResult{Found: false}
	}
	return sp.fallback.Probe(pos)
}

// ProbeRoot is allowed to take the online round trip (§4Q, root-only).
func (sp *SyzygyProber) ProbeRoot(pos *board.Position) RootResult {
	if CountPieces(pos) > sp.MaxPieces() {
		return RootResult{Found: false}
	}
	return sp.fallback.ProbeRoot(pos)
}

// MaxPieces reports the online fallback's cardinality; local coverage never
// exceeds it since both sides key off the same Lichess 7-piece service.
func (sp *SyzygyProber) MaxPieces() int {
	return sp.fallback.MaxPieces()
}

// Available is true whenever the online fallback is reachable, independent
// of whether any local files exist yet.
func (sp *SyzygyProber) Available() bool {
	return sp.fallback.Available()
}

// LocalMaxPieces returns the max piece count actually covered by files on
// disk, as opposed to MaxPieces' fallback-service ceiling.
func (sp *SyzygyProber) LocalMaxPieces() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.maxPieces
}

// HasLocalFiles reports whether any local tablebase files were found.
func (sp *SyzygyProber) HasLocalFiles() bool {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.available
}

// Path returns the configured local tablebase directory.
func (sp *SyzygyProber) Path() string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.path
}

// materialOrder lists non-king piece types heaviest-first, the order
// Syzygy material keys are conventionally written in.
var materialOrder = [5]board.PieceType{board.Queen, board.Rook, board.Bishop, board.Knight, board.Pawn}

// positionToMaterial converts a position to a material key like "KQvKR",
// the naming convention Syzygy files use on disk.
func positionToMaterial(pos *board.Position) string {
	var white, black strings.Builder

	for _, pt := range materialOrder {
		count := pos.Pieces[board.White][pt].PopCount()
		for i := 0; i < count; i++ {
			white.WriteByte(pieceChar(pt))
		}
	}
	for _, pt := range materialOrder {
		count := pos.Pieces[board.Black][pt].PopCount()
		for i := 0; i < count; i++ {
			black.WriteByte(pieceChar(pt))
		}
	}

	return "K" + white.String() + "vK" + black.String()
}

func pieceChar(pt board.PieceType) byte {
	switch pt {
	case board.Queen:
		return 'Q'
	case board.Rook:
		return 'R'
	case board.Bishop:
		return 'B'
	case board.Knight:
		return 'N'
	case board.Pawn:
		return 'P'
	default:
		return '?'
	}
}
