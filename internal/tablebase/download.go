package tablebase

import (
	"os"
	"sort"
	"strings"

	"github.com/hailam/chessplay/internal/storage"
)

// DefaultCacheDir returns the directory the engine looks in for local
// Syzygy tablebase files when no SyzygyPath (§4L) has been configured.
func DefaultCacheDir() string {
	dir, err := storage.GetSyzygyCacheDir()
	if err != nil {
		return "./syzygy"
	}
	return dir
}

// localFiles lists the material signatures ("KQRvKR") that have both a
// .rtbw and a .rtbz file present under dir — Syzygy always ships the WDL
// and DTZ halves of an ending as a pair.
func localFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	seen := make(map[string]int, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".rtbw"):
			seen[strings.TrimSuffix(name, ".rtbw")]++
		case strings.HasSuffix(name, ".rtbz"):
			seen[strings.TrimSuffix(name, ".rtbz")]++
		}
	}

	var files []string
	for base, count := range seen {
		if count >= 2 {
			files = append(files, base)
		}
	}
	sort.Strings(files)
	return files
}

// maxPiecesAvailable returns the largest piece count among dir's local
// tablebase files, or 0 if none are present.
func maxPiecesAvailable(dir string) int {
	best := 0
	for _, f := range localFiles(dir) {
		if n := countPiecesFromName(f); n > best {
			best = n
		}
	}
	return best
}

// countPiecesFromName counts pieces in a material signature like "KQRvKR".
func countPiecesFromName(name string) int {
	count := 0
	for _, c := range strings.ToUpper(name) {
		switch c {
		case 'K', 'Q', 'R', 'B', 'N', 'P':
			count++
		}
	}
	return count
}
