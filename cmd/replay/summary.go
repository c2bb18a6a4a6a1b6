package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	persistlog "realmcore/internal/persistence/log"
	"realmcore/internal/sim/world"
)

type summary struct {
	Segments int
	Entries  int
	Runs     int
	First    time.Time
	Last     time.Time

	byKind     map[world.RecordKind]int
	kills      map[string]int
	deaths     map[string]int
	damageOut  map[string]float64
	classSpawn map[string]int
	logins     map[string]int
	chatLines  int
}

type ranked struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type report struct {
	Segments int            `json:"segments"`
	Entries  int            `json:"entries"`
	Runs     int            `json:"runs"`
	First    time.Time      `json:"first"`
	Last     time.Time      `json:"last"`
	ByKind   map[string]int `json:"by_kind"`
	Spawns   map[string]int `json:"spawns_by_class"`
	Logins   map[string]int `json:"logins_by_class"`
	Killers  []ranked       `json:"top_killers"`
	Victims  []ranked       `json:"top_victims"`
	Damage   []ranked       `json:"top_damage"`
	Chat     int            `json:"chat_lines"`
}

func newSummary() *summary {
	return &summary{
		byKind:     map[world.RecordKind]int{},
		kills:      map[string]int{},
		deaths:     map[string]int{},
		damageOut:  map[string]float64{},
		classSpawn: map[string]int{},
		logins:     map[string]int{},
	}
}

func (s *summary) add(e persistlog.Entry) {
	s.Entries++
	// The journal sequence restarts with every server run.
	if e.Seq == 1 {
		s.Runs++
	}
	if s.First.IsZero() || e.Time.Before(s.First) {
		s.First = e.Time
	}
	if e.Time.After(s.Last) {
		s.Last = e.Time
	}
	s.byKind[e.Kind]++

	switch e.Kind {
	case world.RecordLogin:
		s.logins[e.Class]++
	case world.RecordSpawn:
		s.classSpawn[e.Class]++
	case world.RecordDamage:
		s.damageOut[displayName(e.OtherName, e.OtherID)] += e.Amount
	case world.RecordDeath:
		s.deaths[displayName(e.Name, e.EntityID)]++
		if e.OtherID != 0 {
			s.kills[displayName(e.OtherName, e.OtherID)]++
		}
	case world.RecordChat:
		s.chatLines++
	}
}

func displayName(name string, id uint64) string {
	if name == "" {
		return fmt.Sprintf("#%d", id)
	}
	return name
}

func rank[V int | float64](m map[string]V, n int) []ranked {
	out := make([]ranked, 0, len(m))
	for k, v := range m {
		out = append(out, ranked{Name: k, Value: float64(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *summary) report(top int) report {
	r := report{
		Segments: s.Segments,
		Entries:  s.Entries,
		Runs:     s.Runs,
		First:    s.First,
		Last:     s.Last,
		ByKind:   map[string]int{},
		Spawns:   s.classSpawn,
		Logins:   s.logins,
		Killers:  rank(s.kills, top),
		Victims:  rank(s.deaths, top),
		Damage:   rank(s.damageOut, top),
		Chat:     s.chatLines,
	}
	for k, v := range s.byKind {
		r.ByKind[string(k)] = v
	}
	return r
}

func (s *summary) print(w io.Writer, top int) {
	r := s.report(top)
	fmt.Fprintf(w, "journal segments=%d entries=%d runs=%d\n", r.Segments, r.Entries, r.Runs)
	if r.Entries == 0 {
		return
	}
	fmt.Fprintf(w, "span %s .. %s (%s)\n", r.First.UTC().Format(time.RFC3339), r.Last.UTC().Format(time.RFC3339), r.Last.Sub(r.First).Round(time.Second))

	kinds := make([]string, 0, len(r.ByKind))
	for k := range r.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-10s %d\n", k, r.ByKind[k])
	}

	printRanked(w, "top killers", r.Killers, "%.0f")
	printRanked(w, "most deaths", r.Victims, "%.0f")
	printRanked(w, "damage dealt", r.Damage, "%.1f")
}

func printRanked(w io.Writer, title string, rows []ranked, format string) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for i, r := range rows {
		fmt.Fprintf(w, "  %2d. %-20s "+format+"\n", i+1, r.Name, r.Value)
	}
}
