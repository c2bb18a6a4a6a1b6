package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	persistlog "realmcore/internal/persistence/log"
	"realmcore/internal/sim/world"
)

func main() {
	var (
		realmDir = flag.String("realm_dir", "./data/realms/realm_1", "realm data dir containing journal/")
		file     = flag.String("file", "", "single journal segment (.jsonl.zst) instead of -realm_dir")
		kind     = flag.String("kind", "", "print entries of this kind (login|disconnect|despawn|spawn|chat|damage|death|all)")
		entity   = flag.Uint64("entity", 0, "only entries about this entity id")
		asJSON   = flag.Bool("json", false, "print the summary as JSON")
		top      = flag.Int("top", 10, "rows in ranking tables")
	)
	flag.Parse()

	sum := newSummary()
	visit := func(e persistlog.Entry) error {
		if *entity != 0 && e.EntityID != *entity && e.OtherID != *entity {
			return nil
		}
		sum.add(e)
		if *kind != "" && (*kind == "all" || string(e.Kind) == *kind) {
			printEntry(e)
		}
		return nil
	}

	var err error
	if *file != "" {
		err = persistlog.ReadFile(*file, visit)
	} else {
		var files []string
		files, err = persistlog.JournalFiles(*realmDir)
		if err == nil && len(files) == 0 {
			err = fmt.Errorf("no journal segments under %s", filepath.Join(*realmDir, "journal"))
		}
		for _, p := range files {
			if err = persistlog.ReadFile(p, visit); err != nil {
				break
			}
			sum.Segments++
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum.report(*top))
		return
	}
	sum.print(os.Stdout, *top)
}

func printEntry(e persistlog.Entry) {
	at := e.Time.UTC().Format(time.RFC3339)
	switch e.Kind {
	case world.RecordDamage:
		fmt.Printf("%s %-10s %s(%d) -> %s(%d) %.2f\n", at, e.Kind, e.OtherName, e.OtherID, e.Name, e.EntityID, e.Amount)
	case world.RecordDeath:
		fmt.Printf("%s %-10s %s(%d) killed by %s(%d)\n", at, e.Kind, e.Name, e.EntityID, e.OtherName, e.OtherID)
	case world.RecordChat:
		fmt.Printf("%s %-10s %s: %s\n", at, e.Kind, e.Name, e.Text)
	default:
		fmt.Printf("%s %-10s %s(%d) %s at [%.1f %.1f %.1f]\n", at, e.Kind, e.Name, e.EntityID, e.Class, e.Pos[0], e.Pos[1], e.Pos[2])
	}
}
