package correlation

import (
	"context"
	"testing"
	"time"
)

func TestNewIDIsEightHexChars(t *testing.T) {
	id := NewID()
	if len(id) != 8 {
		t.Fatalf("expected 8-char ID, got %q (len=%d)", id, len(id))
	}
	for _, r := range id {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHex {
			t.Fatalf("expected hex char, got %q in %q", r, id)
		}
	}
}

func TestBeginNesting(t *testing.T) {
	ctx := context.Background()
	ctx, parent := Begin(ctx, "download_run", "")
	if parent.ParentID != "" {
		t.Fatalf("root scope must have no parent, got %q", parent.ParentID)
	}

	ctx, child := Begin(ctx, "fetch", "barchart")
	if child.ParentID != parent.ID {
		t.Fatalf("child.ParentID = %q, want %q", child.ParentID, parent.ID)
	}

	active, ok := Active(ctx)
	if !ok || active.ID != child.ID {
		t.Fatalf("expected active scope to be the child")
	}
}

func TestIDEmptyWhenNoneActive(t *testing.T) {
	if got := ID(context.Background()); got != "" {
		t.Fatalf("expected empty ID outside any scope, got %q", got)
	}
}

func TestTrackerRecordCompleteLookup(t *testing.T) {
	tr := NewTracker(time.Hour)
	c := &Context{ID: "abcd1234", Operation: "fetch", StartTime: time.Now().UTC()}
	tr.Record(c)

	rec, ok := tr.Lookup(c.ID)
	if !ok || rec.Done {
		t.Fatalf("expected in-flight record, got %+v", rec)
	}

	tr.Complete(c.ID, nil)
	rec, ok = tr.Lookup(c.ID)
	if !ok || !rec.Done {
		t.Fatalf("expected completed record, got %+v", rec)
	}
}

func TestTrackerSweepsOldEntries(t *testing.T) {
	tr := NewTracker(time.Millisecond)
	c := &Context{ID: "deadbeef", Operation: "fetch", StartTime: time.Now().UTC().Add(-time.Hour)}
	tr.Record(c)
	time.Sleep(2 * time.Millisecond)

	// Triggers sweepLocked via the next Record call.
	tr.Record(&Context{ID: "feedface", Operation: "fetch", StartTime: time.Now().UTC()})

	if _, ok := tr.Lookup(c.ID); ok {
		t.Fatalf("expected stale entry to be swept")
	}
}
