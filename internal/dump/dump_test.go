package dump

import (
	"strings"
	"testing"
	"time"

	"github.com/memflow/memflowd/internal/freelist"
	"github.com/memflow/memflowd/internal/region"
	"github.com/memflow/memflowd/internal/table"
)

func TestRenderIncludesAllSections(t *testing.T) {
	snap := table.Snapshot{
		Descriptors: []region.Descriptor{
			{ID: 1, TypeTag: region.Int32, Offset: 0, Size: 32, RefCount: 1},
		},
		Values:     map[region.ID]string{1: "42"},
		FreeList:   []freelist.Entry{{Offset: 32, Size: 32}},
		BumpOffset: 64,
		ArenaSize:  128,
	}

	out := Render(snap)

	for _, want := range []string{
		"==== DUMP DE MEMORIA ====",
		"ID: 1 | Tipo: int | Size: 32 | RefCount: 1",
		"Valor: 42",
		"==== HUECOS DISPONIBLES (Free List) ====",
		"Offset: 32 | Size: 32",
		"==== ESTADÍSTICAS DE MEMORIA ====",
		"Total reservado: 128 bytes",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("Render() missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderEmptyFreeListSaysNoHoles(t *testing.T) {
	snap := table.Snapshot{ArenaSize: 64}

	out := Render(snap)
	if !strings.Contains(out, "Sin huecos actualmente.") {
		t.Fatalf("Render() missing empty-free-list line in:\n%s", out)
	}
}

func TestTimestampFormat(t *testing.T) {
	ts := Timestamp(time.Date(2026, 3, 5, 9, 8, 7, 123_000_000, time.UTC))
	if ts != "2026-03-05_09-08-07-123" {
		t.Fatalf("Timestamp() = %q, want %q", ts, "2026-03-05_09-08-07-123")
	}
}

func TestWriteNamesFileByTrigger(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := Write(dir, table.Snapshot{ArenaSize: 16}, false, now)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(path, "dump_2026-01-02_03-04-05-000.txt") {
		t.Fatalf("Write-triggered path = %q, want dump_ prefix", path)
	}

	path, err = Write(dir, table.Snapshot{ArenaSize: 16}, true, now)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(path, "gc_dump_2026-01-02_03-04-05-000.txt") {
		t.Fatalf("GC-triggered path = %q, want gc_dump_ prefix", path)
	}
}
