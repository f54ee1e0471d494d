package tablebase

import (
	"log"
	"sync"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/storage"
)

// memoStore is the subset of *storage.Storage a CachedProber needs to
// persist an online tablebase result across process restarts (§4P).
type memoStore interface {
	SaveProbe(fen string, probe storage.CachedProbe) error
	LoadProbe(fen string) (storage.CachedProbe, bool, error)
}

// CachedProber memoizes inner's root lookups so a position queried once
// never goes over the network again. Probe only ever consults the memo —
// per §5 a search node cannot block on I/O — so a miss there simply means
// "not yet looked up", not "not in the tablebase". ProbeRoot performs the
// real (possibly networked) lookup once, outside the hot loop, and stores
// the result for every later Probe of the same position.
type CachedProber struct {
	inner Prober
	store memoStore

	mu     sync.RWMutex
	memory map[uint64]ProbeResult // used when store is nil, e.g. in tests
	hits   uint64
	misses uint64
}

// NewCachedProber wraps inner with a memoization layer backed by store. A
// nil store falls back to an in-process map, so a CachedProber is usable in
// tests without touching the filesystem (§8's offline-adapter property).
func NewCachedProber(inner Prober, store *storage.Storage) *CachedProber {
	cp := &CachedProber{
		inner:  inner,
		memory: make(map[uint64]ProbeResult),
	}
	if store != nil {
		cp.store = store
	}
	return cp
}

// NewCachedLichessProber creates a cached Lichess prober with no persistent
// backing. Callers that want cross-session memoization construct one with
// NewCachedProber and a *storage.Storage instead.
func NewCachedLichessProber() *CachedProber {
	return NewCachedProber(NewLichessProber(), nil)
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	if cp.store != nil {
		probe, ok, err := cp.store.LoadProbe(pos.ToFEN())
		cp.mu.Lock()
		if err == nil && ok {
			cp.hits++
		} else {
			cp.misses++
		}
		cp.mu.Unlock()
		if err == nil && ok {
			return ProbeResult{Found: probe.Found, WDL: WDL(probe.WDL), DTZ: probe.DTZ}
		}
		return ProbeResult{Found: false}
	}

	cp.mu.RLock()
	result, ok := cp.memory[pos.Hash]
	cp.mu.RUnlock()

	cp.mu.Lock()
	if ok {
		cp.hits++
	} else {
		cp.misses++
	}
	cp.mu.Unlock()

	if ok {
		return result
	}
	return ProbeResult{Found: false}
}

// ProbeRoot runs the real lookup once and memoizes it for every later Probe
// of the same position.
func (cp *CachedProber) ProbeRoot(pos *board.Position) RootResult {
	result := cp.inner.ProbeRoot(pos)
	probe := ProbeResult{Found: result.Found, WDL: result.WDL, DTZ: result.DTZ}

	if cp.store != nil {
		if err := cp.store.SaveProbe(pos.ToFEN(), storage.CachedProbe{
			Found: probe.Found,
			WDL:   int8(probe.WDL),
			DTZ:   probe.DTZ,
		}); err != nil {
			log.Printf("[Tablebase] failed to persist root probe: %v", err)
		}
	} else {
		cp.mu.Lock()
		cp.memory[pos.Hash] = probe
		cp.mu.Unlock()
	}

	return result
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// HitRate returns the memo hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	total := cp.hits + cp.misses
	if total == 0 {
		return 0
	}
	return float64(cp.hits) / float64(total) * 100
}

// Clear drops the in-process memo (a no-op when backed by persistent
// storage — the point there is to survive process restarts).
func (cp *CachedProber) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.memory = make(map[uint64]ProbeResult)
	cp.hits, cp.misses = 0, 0
}
