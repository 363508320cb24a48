package stream

import (
	"sync"
	"testing"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

func TestJournalAppendAssignsSequence(t *testing.T) {
	j := New()

	a := j.Append(models.LogEntry{LogType: models.LogWorkflowStatusUpdate})
	b := j.Append(models.LogEntry{LogType: models.LogTaskStatusUpdate})

	if a.Seq != 0 || b.Seq != 1 {
		t.Errorf("seq = %d,%d, want 0,1", a.Seq, b.Seq)
	}
	if a.Timestamp.IsZero() || b.Timestamp.IsZero() {
		t.Error("expected timestamps to be stamped")
	}
}

func TestJournalEntriesSnapshot(t *testing.T) {
	j := New()
	for i := 0; i < 5; i++ {
		j.Append(models.LogEntry{LogType: models.LogAgentStatusUpdate})
	}

	snap := j.Entries()
	if len(snap) != 5 {
		t.Fatalf("len = %d, want 5", len(snap))
	}
	for i, e := range snap {
		if e.Seq != i {
			t.Errorf("entry %d has seq %d", i, e.Seq)
		}
	}

	// Snapshot must not grow with later appends.
	j.Append(models.LogEntry{})
	if len(snap) != 5 {
		t.Error("snapshot grew after append")
	}
}

func TestJournalSince(t *testing.T) {
	j := New()
	for i := 0; i < 4; i++ {
		j.Append(models.LogEntry{})
	}

	tail := j.Since(2)
	if len(tail) != 2 {
		t.Fatalf("len = %d, want 2", len(tail))
	}
	if tail[0].Seq != 2 || tail[1].Seq != 3 {
		t.Errorf("seqs = %d,%d, want 2,3", tail[0].Seq, tail[1].Seq)
	}

	if got := j.Since(10); got != nil {
		t.Errorf("Since past end = %v, want nil", got)
	}
	if got := j.Since(-1); len(got) != 4 {
		t.Errorf("Since(-1) len = %d, want 4", len(got))
	}
}

func TestJournalConcurrentAppends(t *testing.T) {
	j := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				j.Append(models.LogEntry{})
			}
		}()
	}
	wg.Wait()

	entries := j.Entries()
	if len(entries) != 400 {
		t.Fatalf("len = %d, want 400", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i {
			t.Fatalf("entry %d has seq %d; sequence not dense", i, e.Seq)
		}
	}
}
