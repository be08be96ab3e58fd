// Package sweeper implements the background reclamation task: the sole
// remover of zero-refcount regions.
package sweeper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/memflow/memflowd/internal/dump"
	"github.com/memflow/memflowd/internal/table"
)

// Interval is the fixed sweep period. It trades worst-case reclamation
// latency for simplicity and predictable lock hold times; see the design
// notes on sweeper-as-task rather than timer interrupt.
const Interval = 2 * time.Second

// Sweeper periodically removes zero-refcount regions from a table and
// hands any resulting snapshot to the dump writer.
type Sweeper struct {
	table      *table.Table
	dumpFolder string
	log        *logrus.Entry
}

// New constructs a sweeper over table, writing sweep-triggered dumps into
// dumpFolder.
func New(t *table.Table, dumpFolder string, log *logrus.Entry) *Sweeper {
	return &Sweeper{table: t, dumpFolder: dumpFolder, log: log}
}

// Run loops until ctx is canceled, sleeping Interval between sweeps. It is
// intended to be run in its own goroutine and joined via a WaitGroup or
// similar before the arena is released.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Sweeper) sweepOnce() {
	removed := s.table.SweepZeroRefs()
	if len(removed) == 0 {
		return
	}

	s.log.WithField("reclaimed", len(removed)).Info("sweep reclaimed regions")

	snap := s.table.Snapshot()
	path, err := dump.Write(s.dumpFolder, snap, true, time.Now())
	if err != nil {
		s.log.WithError(err).Warn("failed to write sweep dump")
		return
	}
	s.log.WithField("path", path).Debug("wrote sweep dump")
}
