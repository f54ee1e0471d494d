package storage

import (
	"os"
	"testing"
)

func TestOptions(t *testing.T) {
	t.Run("DefaultOptions", func(t *testing.T) {
		opts := DefaultOptions()
		if opts.HashMB != 32 {
			t.Errorf("expected default hash 32, got %d", opts.HashMB)
		}
		if !opts.OwnBook {
			t.Errorf("expected OwnBook enabled by default")
		}
		if opts.MultiPV != 1 {
			t.Errorf("expected default MultiPV 1, got %d", opts.MultiPV)
		}
	})
}

func TestDataPaths(t *testing.T) {
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	t.Logf("Data directory: %s", dataDir)
}

func TestStorageRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	s, err := NewStorage()
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	defer s.Close()

	opts := &Options{HashMB: 128, OwnBook: false, SyzygyPath: "/tb", MultiPV: 3}
	if err := s.SaveOptions(opts); err != nil {
		t.Fatalf("SaveOptions failed: %v", err)
	}

	loaded, err := s.LoadOptions()
	if err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}
	if loaded.HashMB != 128 || loaded.OwnBook || loaded.SyzygyPath != "/tb" || loaded.MultiPV != 3 {
		t.Errorf("loaded options do not match saved options: %+v", loaded)
	}

	blob := []byte{1, 2, 3, 4}
	if err := s.SaveTTSnapshot(blob); err != nil {
		t.Fatalf("SaveTTSnapshot failed: %v", err)
	}
	got, err := s.LoadTTSnapshot()
	if err != nil {
		t.Fatalf("LoadTTSnapshot failed: %v", err)
	}
	if len(got) != len(blob) {
		t.Errorf("expected snapshot of length %d, got %d", len(blob), len(got))
	}

	probe := CachedProbe{Found: true, WDL: 2, DTZ: 17}
	if err := s.SaveProbe("fen1", probe); err != nil {
		t.Fatalf("SaveProbe failed: %v", err)
	}
	loadedProbe, found, err := s.LoadProbe("fen1")
	if err != nil {
		t.Fatalf("LoadProbe failed: %v", err)
	}
	if !found || loadedProbe.WDL != 2 || loadedProbe.DTZ != 17 {
		t.Errorf("loaded probe does not match: %+v found=%v", loadedProbe, found)
	}
}
