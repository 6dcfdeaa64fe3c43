package document

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhinavnagar29/synctext/internal/wire"
)

func writeFile(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	f.Close()
}

func TestEnsureSeededCreatesOnlyWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a_doc.txt")

	if err := EnsureSeeded(path); err != nil {
		t.Fatalf("EnsureSeeded: %v", err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Lines) != len(SeedLines) {
		t.Fatalf("got %d seed lines, want %d", len(doc.Lines), len(SeedLines))
	}

	writeFile(t, path, []string{"custom"})
	if err := EnsureSeeded(path); err != nil {
		t.Fatalf("EnsureSeeded (existing): %v", err)
	}
	doc2, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc2.Lines) != 1 || doc2.Lines[0] != "custom" {
		t.Fatalf("EnsureSeeded overwrote an existing file: %v", doc2.Lines)
	}
}

func TestLoadDropsTrailingEmptyLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, []string{"a", "b", "", "", ""})

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Lines) != 2 || doc.Lines[0] != "a" || doc.Lines[1] != "b" {
		t.Fatalf("got %v, want [a b]", doc.Lines)
	}
}

func TestChangedDetectsModTimeAdvance(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, []string{"a"})

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, changed, err := doc.Changed(); err != nil || changed {
		t.Fatalf("unexpected change before any write: changed=%v err=%v", changed, err)
	}

	future := time.Now().Add(2 * time.Second)
	writeFile(t, path, []string{"a", "b"})
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	prev, changed, err := doc.Changed()
	if err != nil {
		t.Fatalf("Changed: %v", err)
	}
	if !changed {
		t.Fatal("expected change to be detected")
	}
	if len(prev) != 1 || prev[0] != "a" {
		t.Fatalf("prev = %v, want [a]", prev)
	}
	if len(doc.Lines) != 2 || doc.Lines[1] != "b" {
		t.Fatalf("doc.Lines after Changed = %v", doc.Lines)
	}
}

func TestWriteAtomicTrimsTrailingBlanksAndUpdatesState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, []string{"old"})
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := doc.WriteAtomic([]string{"new1", "new2", "", ""}); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("doc.Lines = %v, want 2 non-blank lines", doc.Lines)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after write: %v", err)
	}
	if len(reloaded.Lines) != 2 || reloaded.Lines[0] != "new1" || reloaded.Lines[1] != "new2" {
		t.Fatalf("reloaded = %v", reloaded.Lines)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected WriteAtomic to leave exactly one file behind, found %d", len(entries))
	}
}

func TestDiffMinimalSpanOnCommonLine(t *testing.T) {
	d := &Document{Lines: []string{"int y = 42;"}}
	prev := []string{"int x = 10;"}

	changes, err := d.Diff(prev)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1: %+v", len(changes), changes)
	}
	c := changes[0]
	if c.Line != 0 || c.ColStart != 4 {
		t.Fatalf("unexpected span: %+v", c)
	}
	if c.Kind != wire.OpReplace {
		t.Fatalf("kind = %v, want replace", c.Kind)
	}
}

func TestDiffDetectsInsertAtEnd(t *testing.T) {
	d := &Document{Lines: []string{"a", "b", "c"}}
	prev := []string{"a", "b"}

	changes, err := d.Diff(prev)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != wire.OpInsert || changes[0].NewText != "c" {
		t.Fatalf("got %+v", changes)
	}
}

func TestDiffIgnoresTrailingEmptyLineInsertion(t *testing.T) {
	d := &Document{Lines: []string{"a", ""}}
	prev := []string{"a"}

	changes, err := d.Diff(prev)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("got %d changes, want 0 for a trailing blank-line insert: %+v", len(changes), changes)
	}
}

func TestDiffDetectsDeleteAtEnd(t *testing.T) {
	d := &Document{Lines: []string{"a"}}
	prev := []string{"a", "b"}

	changes, err := d.Diff(prev)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 1 || changes[0].Kind != wire.OpDelete || changes[0].OldText != "b" {
		t.Fatalf("got %+v", changes)
	}
}

func TestDiffRejectsOversizedSpan(t *testing.T) {
	huge := make([]byte, MaxSpanLen+1)
	for i := range huge {
		huge[i] = 'x'
	}
	d := &Document{Lines: []string{string(huge)}}
	prev := []string{""}

	if _, err := d.Diff(prev); err != ErrOversizedSpan {
		t.Fatalf("Diff err = %v, want ErrOversizedSpan", err)
	}
}

func TestDiffNoOpWhenLinesIdentical(t *testing.T) {
	d := &Document{Lines: []string{"same"}}
	prev := []string{"same"}

	changes, err := d.Diff(prev)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("got %+v, want no changes", changes)
	}
}
