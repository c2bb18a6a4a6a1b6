package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"realmcore/internal/persistence/indexdb"
	persistlog "realmcore/internal/persistence/log"
	"realmcore/internal/sim/world"
	"realmcore/internal/transport/ws"
)

type metricsSources struct {
	realm   string
	world   *world.World
	ws      *ws.Server
	journal *persistlog.Journal
	index   *indexdb.SQLiteIndex
}

func metricsHandler(src metricsSources) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, src)
	}
}

func gauge(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", name)
}

func counter(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
}

// writeMetrics renders the Prometheus text exposition format.
func writeMetrics(w io.Writer, src metricsSources) {
	realm := src.realm
	m := src.world.Metrics()

	counter(w, "realm_world_ticks_total", "World ticks executed.")
	fmt.Fprintf(w, "realm_world_ticks_total{realm=%q} %d\n", realm, m.Ticks)
	counter(w, "realm_world_syncs_total", "Interest sync passes.")
	fmt.Fprintf(w, "realm_world_syncs_total{realm=%q} %d\n", realm, m.Syncs)

	gauge(w, "realm_world_entities", "Live entities by kind.")
	fmt.Fprintf(w, "realm_world_entities{realm=%q,kind=%q} %d\n", realm, "player", m.Players)
	fmt.Fprintf(w, "realm_world_entities{realm=%q,kind=%q} %d\n", realm, "mobile", m.Mobiles)
	gauge(w, "realm_world_sessions", "Players bound to a live connection.")
	fmt.Fprintf(w, "realm_world_sessions{realm=%q} %d\n", realm, m.Sessions)
	gauge(w, "realm_world_spawners", "Registered mobile spawners.")
	fmt.Fprintf(w, "realm_world_spawners{realm=%q} %d\n", realm, m.Spawners)

	counter(w, "realm_world_kills_total", "Entities killed.")
	fmt.Fprintf(w, "realm_world_kills_total{realm=%q} %d\n", realm, m.Kills)
	counter(w, "realm_world_respawns_total", "Mobiles spawned by spawners.")
	fmt.Fprintf(w, "realm_world_respawns_total{realm=%q} %d\n", realm, m.Respawns)
	counter(w, "realm_world_unhandled_total", "Inbound messages no entity handled.")
	fmt.Fprintf(w, "realm_world_unhandled_total{realm=%q} %d\n", realm, m.Unhandled)

	gauge(w, "realm_world_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(w, "realm_world_step_ms{realm=%q} %.3f\n", realm, m.StepMS)
	gauge(w, "realm_world_tick_delta_seconds", "Last tick delta in seconds.")
	fmt.Fprintf(w, "realm_world_tick_delta_seconds{realm=%q} %.6f\n", realm, m.LastDelta)

	gauge(w, "realm_world_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(w, "realm_world_queue_depth{realm=%q,queue=%q} %d\n", realm, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(w, "realm_world_queue_depth{realm=%q,queue=%q} %d\n", realm, "join", m.QueueDepths.Join)
	fmt.Fprintf(w, "realm_world_queue_depth{realm=%q,queue=%q} %d\n", realm, "leave", m.QueueDepths.Leave)

	if src.ws != nil {
		s := src.ws.Stats()
		gauge(w, "realm_ws_connections", "Open websocket connections.")
		fmt.Fprintf(w, "realm_ws_connections{realm=%q} %d\n", realm, s.Active)
		counter(w, "realm_ws_connections_total", "Accepted websocket connections.")
		fmt.Fprintf(w, "realm_ws_connections_total{realm=%q} %d\n", realm, s.Total)
		counter(w, "realm_ws_dropped_frames_total", "Outbound frames dropped on slow clients.")
		fmt.Fprintf(w, "realm_ws_dropped_frames_total{realm=%q} %d\n", realm, s.Drops)

		codes := make([]string, 0, len(s.Rejects))
		for c := range s.Rejects {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		counter(w, "realm_ws_rejects_total", "Rejected inbound frames by code.")
		for _, c := range codes {
			fmt.Fprintf(w, "realm_ws_rejects_total{realm=%q,code=%q} %d\n", realm, c, s.Rejects[c])
		}
	}

	if src.journal != nil {
		s := src.journal.Stats()
		writeSinkMetrics(w, realm, "journal", s.Written, s.Dropped, s.Failed, s.QueueDepth, s.QueueCapacity)
	}
	if src.index != nil {
		s := src.index.Stats()
		writeSinkMetrics(w, realm, "index", s.Written, s.Dropped, s.Failed, s.QueueDepth, s.QueueCapacity)
	}
}

func writeSinkMetrics(w io.Writer, realm, sink string, written, dropped, failed uint64, depth, capacity int) {
	counter(w, "realm_"+sink+"_records_total", "Records by outcome.")
	fmt.Fprintf(w, "realm_%s_records_total{realm=%q,outcome=%q} %d\n", sink, realm, "written", written)
	fmt.Fprintf(w, "realm_%s_records_total{realm=%q,outcome=%q} %d\n", sink, realm, "dropped", dropped)
	fmt.Fprintf(w, "realm_%s_records_total{realm=%q,outcome=%q} %d\n", sink, realm, "failed", failed)
	gauge(w, "realm_"+sink+"_queue_depth", "Pending records.")
	fmt.Fprintf(w, "realm_%s_queue_depth{realm=%q} %d\n", sink, realm, depth)
	gauge(w, "realm_"+sink+"_queue_capacity", "Record queue capacity.")
	fmt.Fprintf(w, "realm_%s_queue_capacity{realm=%q} %d\n", sink, realm, capacity)
}
