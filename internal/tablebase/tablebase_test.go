package tablebase

import (
	"testing"

	"github.com/hailam/chessplay/internal/board"
)

// stubProber lets tests control ProbeRoot's result without any network
// access, per §8's offline-adapter testability property.
type stubProber struct {
	probeRoot RootResult
	calls     int
}

func (s *stubProber) Probe(pos *board.Position) ProbeResult { return ProbeResult{Found: false} }
func (s *stubProber) ProbeRoot(pos *board.Position) RootResult {
	s.calls++
	return s.probeRoot
}
func (s *stubProber) MaxPieces() int  { return 7 }
func (s *stubProber) Available() bool { return true }

func TestNoopProber(t *testing.T) {
	prober := NoopProber{}

	if prober.Available() {
		t.Error("NoopProber should not be available")
	}

	if prober.MaxPieces() != 0 {
		t.Errorf("NoopProber MaxPieces should be 0, got %d", prober.MaxPieces())
	}

	pos := board.NewPosition()
	result := prober.Probe(pos)
	if result.Found {
		t.Error("NoopProber should not find anything")
	}

	rootResult := prober.ProbeRoot(pos)
	if rootResult.Found {
		t.Error("NoopProber ProbeRoot should not find anything")
	}
}

func TestCountPieces(t *testing.T) {
	pos := board.NewPosition()
	count := CountPieces(pos)

	// Starting position has 32 pieces
	if count != 32 {
		t.Errorf("Starting position should have 32 pieces, got %d", count)
	}
}

func TestWDLToScore(t *testing.T) {
	tests := []struct {
		wdl      WDL
		ply      int
		positive bool // Should score be positive (winning)?
	}{
		{WDLWin, 0, true},
		{WDLWin, 10, true},
		{WDLCursedWin, 0, true},
		{WDLDraw, 0, false},
		{WDLBlessedLoss, 0, false},
		{WDLLoss, 0, false},
	}

	for _, tc := range tests {
		score := WDLToScore(tc.wdl, tc.ply)
		isPositive := score > 0

		if tc.positive && !isPositive {
			t.Errorf("WDL %d at ply %d should give positive score, got %d", tc.wdl, tc.ply, score)
		}
		if !tc.positive && tc.wdl != WDLDraw && isPositive {
			t.Errorf("WDL %d at ply %d should give non-positive score, got %d", tc.wdl, tc.ply, score)
		}
	}
}

// TestCachedProberProbeNeverCallsInner guards the §5 invariant that a
// search-node Probe never blocks on the wrapped prober's (potentially
// networked) lookup — only ProbeRoot may call through.
func TestCachedProberProbeNeverCallsInner(t *testing.T) {
	inner := &stubProber{probeRoot: RootResult{Found: true, WDL: WDLWin}}
	cp := NewCachedProber(inner, nil)
	pos := board.NewPosition()

	if result := cp.Probe(pos); result.Found {
		t.Error("Probe should not find anything before a ProbeRoot has memoized this position")
	}
	if inner.calls != 0 {
		t.Errorf("Probe must never call the wrapped prober, got %d calls", inner.calls)
	}
}

func TestCachedProberMemoizesRootHit(t *testing.T) {
	inner := &stubProber{probeRoot: RootResult{Found: true, WDL: WDLWin, DTZ: 12}}
	cp := NewCachedProber(inner, nil)
	pos := board.NewPosition()

	cp.ProbeRoot(pos)
	if inner.calls != 1 {
		t.Fatalf("expected ProbeRoot to call through once, got %d", inner.calls)
	}

	result := cp.Probe(pos)
	if !result.Found || result.WDL != WDLWin || result.DTZ != 12 {
		t.Errorf("Probe after ProbeRoot should replay the memoized result, got %+v", result)
	}
	if inner.calls != 1 {
		t.Errorf("the memoized Probe must not call the wrapped prober again, got %d calls", inner.calls)
	}
}

func TestPositionToMaterial(t *testing.T) {
	pos := board.NewPosition()
	if got := positionToMaterial(pos); got != "KQRRBBNNPPPPPPPPvKQRRBBNNPPPPPPPP" {
		t.Errorf("unexpected material signature for the start position: %s", got)
	}
}

func TestSyzygyProberUnavailableDirGivesNoLocalCoverage(t *testing.T) {
	sp := NewSyzygyProber(t.TempDir())
	if sp.HasLocalFiles() {
		t.Error("an empty directory should report no local files")
	}
	if sp.LocalMaxPieces() != 0 {
		t.Errorf("LocalMaxPieces should be 0 for an empty directory, got %d", sp.LocalMaxPieces())
	}
	// Available still reflects the online fallback regardless of local coverage.
	if !sp.Available() {
		t.Error("Available should follow the online fallback, not local file presence")
	}
}
