package log

import (
	"crypto/rand"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"realmcore/internal/sim/world"
)

// Entry is one journal line.
type Entry struct {
	ID  string `json:"id"`
	Seq uint64 `json:"seq"`
	world.Record
}

type JournalStats struct {
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
	Failed        uint64 `json:"failed"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

// Journal is the durable record sink. Record never blocks the world loop;
// a full queue drops the record and counts it.
type Journal struct {
	w   *JSONLZstdWriter
	log *zap.Logger

	ch   chan world.Record
	wg   sync.WaitGroup
	once sync.Once

	entropy *ulid.MonotonicEntropy
	seq     uint64

	closed  atomic.Bool
	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewJournal(worldDir string, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Journal{
		w:       NewJSONLZstdWriter(filepath.Join(worldDir, "journal"), "records"),
		log:     logger,
		ch:      make(chan world.Record, 16384),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j
}

func (j *Journal) Record(r world.Record) {
	if j == nil || j.closed.Load() {
		return
	}
	select {
	case j.ch <- r:
	default:
		j.dropped.Add(1)
	}
}

func (j *Journal) Stats() JournalStats {
	if j == nil {
		return JournalStats{}
	}
	return JournalStats{
		Written:       j.written.Load(),
		Dropped:       j.dropped.Load(),
		Failed:        j.failed.Load(),
		QueueDepth:    len(j.ch),
		QueueCapacity: cap(j.ch),
	}
}

func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		j.wg.Wait()
		err = j.w.Close()
	})
	return err
}

func (j *Journal) loop() {
	flush := time.NewTicker(time.Second)
	defer flush.Stop()
	dirty := false

	for {
		select {
		case r, ok := <-j.ch:
			if !ok {
				return
			}
			j.write(r)
			dirty = true
		case <-flush.C:
			if !dirty {
				continue
			}
			if err := j.w.Flush(); err != nil {
				j.log.Warn("journal flush failed", zap.Error(err))
			}
			dirty = false
		}
	}
}

func (j *Journal) write(r world.Record) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	j.seq++
	e := Entry{
		ID:     ulid.MustNew(ulid.Timestamp(r.Time), j.entropy).String(),
		Seq:    j.seq,
		Record: r,
	}
	if err := j.w.Write(e); err != nil {
		j.failed.Add(1)
		j.log.Warn("journal write failed", zap.Error(err), zap.String("kind", string(r.Kind)))
		return
	}
	j.written.Add(1)
}
