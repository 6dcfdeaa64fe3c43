package peer

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/abhinavnagar29/synctext/internal/document"
	"github.com/abhinavnagar29/synctext/internal/merge"
	"github.com/abhinavnagar29/synctext/internal/render"
	"github.com/abhinavnagar29/synctext/internal/ring"
	"github.com/abhinavnagar29/synctext/internal/synctext"
	"github.com/abhinavnagar29/synctext/internal/wire"
)

func testContext(t *testing.T, lines []string) *Context {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "user_doc.txt")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, l := range lines {
		f.WriteString(l + "\n")
	}
	f.Close()

	doc, err := document.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	return &Context{
		UserID:        "user",
		Doc:           doc,
		Ring:          ring.New(8),
		Sink:          render.NewLogSink(log.New(&bytes.Buffer{}, "", 0)),
		Log:           log.New(&bytes.Buffer{}, "", 0),
		MergeBaseline: append([]string(nil), doc.Lines...),
	}
}

func touchWithLines(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	for _, l := range lines {
		f.WriteString(l + "\n")
	}
	f.Close()
}

func TestDetectLocalChangesPopulatesBothBuffers(t *testing.T) {
	c := testContext(t, []string{"int x = 10;"})
	touchWithLines(t, c.Doc.Path, []string{"int x = 42;"})

	c.detectLocalChanges()

	if len(c.LocalOps) != 1 {
		t.Fatalf("LocalOps = %d, want 1", len(c.LocalOps))
	}
	if len(c.LocalUnmerged) != 1 {
		t.Fatalf("LocalUnmerged = %d, want 1", len(c.LocalUnmerged))
	}
	if c.LocalOps[0].Sender != "user" {
		t.Fatalf("Sender = %q, want user", c.LocalOps[0].Sender)
	}
}

func TestDetectLocalChangesNoopWhenMtimeUnchanged(t *testing.T) {
	c := testContext(t, []string{"a"})
	c.detectLocalChanges()
	if len(c.LocalOps) != 0 {
		t.Fatalf("expected no changes without a file modification")
	}
}

func TestDrainRingSkipsSelfAndTracksLastSender(t *testing.T) {
	c := testContext(t, []string{"a"})
	c.Ring.Push(wire.OperationRecord{Sender: "user", Line: 0})
	c.Ring.Push(wire.OperationRecord{Sender: "bob", Line: 1})

	got := c.drainRing()
	if !got {
		t.Fatal("expected drainRing to report it drained something")
	}
	if len(c.RecvUnmerged) != 1 {
		t.Fatalf("RecvUnmerged = %d, want 1 (self-sent record should be skipped)", len(c.RecvUnmerged))
	}
	if c.LastSender != "bob" {
		t.Fatalf("LastSender = %q, want bob", c.LastSender)
	}
}

func TestDrainRingReportsFalseWhenEmpty(t *testing.T) {
	c := testContext(t, []string{"a"})
	if c.drainRing() {
		t.Fatal("expected false on an empty ring")
	}
}

func TestRunMergeSkipsBelowThresholdWithNoReceived(t *testing.T) {
	c := testContext(t, []string{"a"})
	c.LocalUnmerged = []merge.Operation{{Line: 0, ColStart: 0, ColEnd: 0, OldText: "a", NewText: "b"}}

	if c.runMerge() {
		t.Fatal("expected no merge below MergeThreshold with nothing received")
	}
}

func TestRunMergeFiresOnReceivedOperations(t *testing.T) {
	c := testContext(t, []string{"a"})
	c.RecvUnmerged = []merge.Operation{{UserID: "bob", Timestamp: 1, Line: 0, ColStart: 0, ColEnd: 0, OldText: "a", NewText: "z"}}

	if !c.runMerge() {
		t.Fatal("expected a merge when recvUnmerged is non-empty")
	}
	if c.Doc.Lines[0] != "z" {
		t.Fatalf("got %q, want z", c.Doc.Lines[0])
	}
	if len(c.RecvUnmerged) != 0 || len(c.LocalUnmerged) != 0 {
		t.Fatal("expected both unmerged buffers cleared after a merge attempt")
	}
}

func TestRunMergeSuppressedWhileDocumentIsDirty(t *testing.T) {
	c := testContext(t, []string{"a"})
	c.RecvUnmerged = []merge.Operation{{UserID: "bob", Timestamp: 1, Line: 0, ColStart: 0, ColEnd: 0, OldText: "a", NewText: "z"}}

	touchWithLines(t, c.Doc.Path, []string{"a", "dirty edit"})

	if c.runMerge() {
		t.Fatal("expected the merge guard to suppress writeback while the file is dirty")
	}
}

func TestRunMergeFiresAtMergeThresholdWithNoReceived(t *testing.T) {
	c := testContext(t, []string{"a"})
	for i := 0; i < synctext.MergeThreshold; i++ {
		c.LocalUnmerged = append(c.LocalUnmerged, merge.Operation{UserID: "user", Timestamp: uint64(i), Line: 0, ColStart: 0, ColEnd: 0, OldText: "a", NewText: "a"})
	}

	if !c.runMerge() {
		t.Fatal("expected a merge once LocalUnmerged reaches MergeThreshold")
	}
}

func TestSplitBatchKeepsLeftoversQueued(t *testing.T) {
	ops := make([]wire.OperationRecord, 7)
	for i := range ops {
		ops[i] = wire.OperationRecord{Line: uint32(i)}
	}

	batch, remaining := splitBatch(ops, synctext.BroadcastBatchSize)
	if len(batch) != synctext.BroadcastBatchSize {
		t.Fatalf("batch = %d, want %d", len(batch), synctext.BroadcastBatchSize)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
}

func TestSplitBatchTakesEverythingWhenBelowBatchSize(t *testing.T) {
	ops := make([]wire.OperationRecord, 3)
	batch, remaining := splitBatch(ops, synctext.BroadcastBatchSize)
	if len(batch) != 3 || remaining != nil {
		t.Fatalf("batch=%d remaining=%d, want 3/nil", len(batch), len(remaining))
	}
}
