// Command chessplay-uci is the engine's primary front-end: a UCI protocol
// handler reading commands from stdin and writing responses to stdout.
package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/hailam/chessplay/internal/engine"
	"github.com/hailam/chessplay/internal/storage"
	"github.com/hailam/chessplay/internal/uci"
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	store, storeErr := storage.NewStorage()
	if storeErr != nil {
		log.Printf("warning: session store unavailable, proceeding in-memory only: %v", storeErr)
	}

	opts := storage.DefaultOptions()
	if store != nil {
		if loaded, err := store.LoadOptions(); err == nil {
			opts = loaded
		}
	}

	eng := engine.NewEngine(opts.HashMB)
	eng.SetOwnBook(opts.OwnBook)
	eng.SetSyzygyProbeDepth(opts.SyzygyProbeDepth)

	if store != nil && opts.PersistHash {
		if snapshot, err := store.LoadTTSnapshot(); err == nil && len(snapshot) > 0 {
			eng.LoadTTSnapshot(snapshot)
			log.Printf("[Engine] Restored transposition table snapshot")
		}
	}

	protocol := uci.New(eng)
	protocol.SetStore(store)
	if store != nil {
		protocol.OnQuit = func(u *uci.UCI) {
			defer store.Close()
			session := u.Options()
			opts.OwnBook = session.OwnBook
			opts.MultiPV = session.MultiPV
			opts.PersistHash = session.PersistHash
			opts.SyzygyPath = session.SyzygyPath
			opts.SyzygyProbeDepth = session.SyzygyProbeDepth
			if err := store.SaveOptions(opts); err != nil {
				log.Printf("warning: failed to persist session options: %v", err)
			}
			if session.PersistHash {
				if err := store.SaveTTSnapshot(eng.SaveTTSnapshot()); err != nil {
					log.Printf("warning: failed to persist transposition table: %v", err)
				}
			}
		}
	}
	protocol.Run()
}
