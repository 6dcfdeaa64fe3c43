// Package document manages a peer's on-disk text file: loading it
// into lines, watching its modification time for outside edits, and
// synthesizing the minimal-span operations a change produced.
package document

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// SeedLines is the content a brand-new document is created with, so a
// peer starting on an empty working directory still has something to
// look at and diff against.
var SeedLines = []string{"int x = 10;", "int y = 20;", "int z = 30;"}

// ErrOversizedSpan is returned by Diff when a differing span would not
// fit in the wire format's 255-byte bounded text fields. The caller is
// expected to log and skip that line's change rather than emit a
// truncated, no-longer-faithful operation.
var ErrOversizedSpan = errors.New("document: differing span exceeds the wire text limit")

// MaxSpanLen is the largest old_text/new_text span Diff will emit,
// matching synctext.TextSegMax-1 (reserving one byte for the NUL
// terminator).
const MaxSpanLen = 255

// Document is the in-memory, line-oriented view of one peer's file,
// plus the bookkeeping needed to detect and diff future changes.
type Document struct {
	Path    string
	Lines   []string
	ModTime time.Time
}

// EnsureSeeded creates path with SeedLines if it does not already
// exist. An existing file, even an empty one, is left untouched.
func EnsureSeeded(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, line := range SeedLines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load reads path into a Document. Trailing empty lines are dropped so
// a file's terminating newline never registers as a phantom blank
// line during diffing.
func Load(path string) (*Document, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Lines: lines, ModTime: st.ModTime()}, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// Changed reports whether the file's modification time has moved on
// from d.ModTime, and if so refreshes d in place and returns the
// previous line set for diffing against.
func (d *Document) Changed() (prev []string, changed bool, err error) {
	st, err := os.Stat(d.Path)
	if err != nil {
		return nil, false, err
	}
	if st.ModTime().Equal(d.ModTime) {
		return nil, false, nil
	}
	prev = d.Lines
	newLines, err := readLines(d.Path)
	if err != nil {
		return nil, false, err
	}
	d.Lines = newLines
	d.ModTime = st.ModTime()
	return prev, true, nil
}

// IsDirty reports whether the file's modification time has moved on
// from d.ModTime without reloading or otherwise mutating d. Used to
// guard the merge writeback against racing a fresh, not-yet-diffed
// user edit (spec.md §4.4's merge trigger policy).
func (d *Document) IsDirty() (bool, error) {
	st, err := os.Stat(d.Path)
	if err != nil {
		return false, err
	}
	return !st.ModTime().Equal(d.ModTime), nil
}

// WriteAtomic writes lines to d.Path via a temp-file-then-rename, so a
// crash mid-write never leaves a half-written document on disk, then
// refreshes d's cached state to match. Trailing empty lines are
// trimmed before writing, mirroring the pre-diff normalization.
func (d *Document) WriteAtomic(lines []string) error {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	tmp := fmt.Sprintf("%s.%s.tmp", d.Path, uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, d.Path); err != nil {
		os.Remove(tmp)
		return err
	}

	d.Lines = lines
	st, err := os.Stat(d.Path)
	if err != nil {
		return err
	}
	d.ModTime = st.ModTime()
	return nil
}
