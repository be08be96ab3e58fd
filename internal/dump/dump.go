// Package dump renders an allocator snapshot into the human-readable
// diagnostic text format and writes it to disk.
package dump

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/memflow/memflowd/internal/region"
	"github.com/memflow/memflowd/internal/table"
)

// Render formats a snapshot into the dump text format.
func Render(snap table.Snapshot) string {
	var b strings.Builder

	descs := append([]region.Descriptor(nil), snap.Descriptors...)
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })

	b.WriteString("==== DUMP DE MEMORIA ====\n")
	for _, d := range descs {
		value := snap.Values[d.ID]
		fmt.Fprintf(&b, "ID: %d | Tipo: %s | Size: %d | RefCount: %d | Dirección: %#x | Valor: %s\n",
			d.ID, d.TypeTag, d.Size, d.RefCount, d.Offset, value)
	}

	b.WriteString("==== HUECOS DISPONIBLES (Free List) ====\n")
	if len(snap.FreeList) == 0 {
		b.WriteString("Sin huecos actualmente.\n")
	} else {
		for _, e := range snap.FreeList {
			fmt.Fprintf(&b, "Offset: %d | Size: %d\n", e.Offset, e.Size)
		}
	}

	used := snap.BumpOffset
	var free uint64
	for _, e := range snap.FreeList {
		free += e.Size
	}
	used -= free

	var pct float64
	if snap.ArenaSize > 0 {
		pct = float64(used) / float64(snap.ArenaSize) * 100
	}

	b.WriteString("==== ESTADÍSTICAS DE MEMORIA ====\n")
	fmt.Fprintf(&b, "Total reservado: %d bytes\n", snap.ArenaSize)
	fmt.Fprintf(&b, "Memoria usada : %d bytes\n", used)
	fmt.Fprintf(&b, "Memoria libre : %d bytes\n", snap.ArenaSize-used)
	fmt.Fprintf(&b, "Uso (%%)       : %.2f%%\n", pct)

	return b.String()
}

// Timestamp formats t in the dump file naming convention:
// YYYY-MM-DD_HH-MM-SS-mmm, local time.
func Timestamp(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d_%02d-%02d-%02d-%03d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
}

// Write renders snap and writes it to folder, using the dump_<ts>.txt name
// for write-triggered dumps or gc_dump_<ts>.txt for sweeper-triggered
// dumps.
func Write(folder string, snap table.Snapshot, gcTriggered bool, now time.Time) (string, error) {
	prefix := "dump_"
	if gcTriggered {
		prefix = "gc_dump_"
	}

	name := prefix + Timestamp(now) + ".txt"
	path := filepath.Join(folder, name)

	if err := os.WriteFile(path, []byte(Render(snap)), 0o644); err != nil {
		return "", fmt.Errorf("dump: write %s: %w", path, err)
	}

	return path, nil
}
