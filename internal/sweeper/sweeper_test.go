package sweeper

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/memflow/memflowd/internal/arena"
	"github.com/memflow/memflowd/internal/table"
)

func newTestSweeper(t *testing.T) (*table.Table, *Sweeper) {
	t.Helper()

	a, err := arena.New(1 << 16)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	tbl := table.New(a)

	folder := t.TempDir()

	log := logrus.New()
	log.SetOutput(io.Discard)

	return tbl, New(tbl, folder, log.WithField("component", "sweeper"))
}

func TestSweepLivenessRemovesZeroRefRegions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-time sweep test in short mode")
	}

	tbl, sw := newTestSweeper(t)

	id, err := tbl.Allocate("int", 4)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	tbl.DecRef(id)

	ctx, cancel := context.WithTimeout(context.Background(), 3*Interval)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * Interval)
	for {
		if _, err := tbl.Read(id); err != nil {
			cancel()
			<-done
			return
		}
		select {
		case <-deadline:
			cancel()
			<-done
			t.Fatalf("region %d was not reclaimed within two sweep intervals", id)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestSweepWritesGCDump(t *testing.T) {
	tbl, sw := newTestSweeper(t)
	folder := sw.dumpFolder

	id, _ := tbl.Allocate("int", 4)
	tbl.DecRef(id)

	sw.sweepOnce()

	entries, err := os.ReadDir(folder)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", folder, err)
	}
	if len(entries) != 1 {
		t.Fatalf("dump folder has %d entries, want 1", len(entries))
	}
	if got := entries[0].Name(); len(got) < len("gc_dump_") || got[:len("gc_dump_")] != "gc_dump_" {
		t.Fatalf("dump file name %q does not have gc_dump_ prefix", got)
	}
}

func TestSweepOnceIsNoopWithNothingToReclaim(t *testing.T) {
	tbl, sw := newTestSweeper(t)
	tbl.Allocate("int", 4) // refcount 1, nothing to reclaim

	sw.sweepOnce()

	entries, err := os.ReadDir(sw.dumpFolder)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no dump written, found %d entries", len(entries))
	}
}
