package transaction

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
)

func pid(table, n uint64) page.PageDescriptor {
	return page.NewPageDescriptor(primitives.FileID(table), primitives.PageNumber(n))
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{TxActive, "ACTIVE"},
		{TxCommitting, "COMMITTING"},
		{TxAborting, "ABORTING"},
		{TxCommitted, "COMMITTED"},
		{TxAborted, "ABORTED"},
		{Status(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestContextLifecycle(t *testing.T) {
	ctx := NewContext(primitives.NewTransactionID())
	if !ctx.IsActive() {
		t.Fatal("new context should be active")
	}
	if !ctx.endTime.IsZero() {
		t.Fatal("end time set too early")
	}

	ctx.SetStatus(TxCommitting)
	if ctx.IsActive() || !ctx.endTime.IsZero() {
		t.Error("committing is neither active nor terminal")
	}

	ctx.SetStatus(TxCommitted)
	if ctx.endTime.IsZero() {
		t.Error("terminal status should stamp the end time")
	}
	d := ctx.Duration()
	time.Sleep(2 * time.Millisecond)
	if ctx.Duration() != d {
		t.Error("duration should freeze once the transaction ends")
	}
}

func TestRecordPageAccess(t *testing.T) {
	ctx := NewContext(primitives.NewTransactionID())

	ctx.RecordPageAccess(pid(1, 0), page.ReadOnly)
	ctx.RecordPageAccess(pid(1, 0), page.ReadOnly)
	ctx.RecordPageAccess(pid(1, 1), page.ReadWrite)
	ctx.RecordPageAccess(pid(1, 1), page.ReadOnly)

	if perm, ok := ctx.PagePermission(pid(1, 1)); !ok || perm != page.ReadWrite {
		t.Errorf("read-write access was downgraded: %v %v", perm, ok)
	}
	stats := ctx.Statistics()
	if stats.PagesRead != 1 || stats.TouchedPages != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDirtyPagesSorted(t *testing.T) {
	ctx := NewContext(primitives.NewTransactionID())
	ctx.MarkPageDirty(pid(2, 1))
	ctx.MarkPageDirty(pid(1, 5))
	ctx.MarkPageDirty(pid(1, 0))
	ctx.MarkPageDirty(pid(1, 5))

	got := ctx.DirtyPages()
	want := []page.PageDescriptor{pid(1, 0), pid(1, 5), pid(2, 1)}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if !got[i].Equals(want[i]) {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if ctx.Statistics().PagesWritten != 3 {
		t.Errorf("pages written = %d", ctx.Statistics().PagesWritten)
	}
}

func TestContextString(t *testing.T) {
	ctx := NewContext(primitives.NewTransactionID())
	ctx.MarkPageDirty(pid(1, 0))
	s := ctx.String()
	if !strings.Contains(s, "ACTIVE") || !strings.Contains(s, "Dirty=1") {
		t.Errorf("unexpected string %q", s)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	a := reg.Begin()
	b := reg.Begin()

	if a.ID.Equals(b.ID) {
		t.Fatal("Begin reused an id")
	}
	if reg.Count() != 2 {
		t.Fatalf("count = %d", reg.Count())
	}

	got, err := reg.Get(a.ID)
	if err != nil || got != a {
		t.Fatalf("Get: %v %v", got, err)
	}

	b.SetStatus(TxAborted)
	if active := reg.Active(); len(active) != 1 || active[0] != a {
		t.Errorf("active = %v", active)
	}

	reg.Remove(a.ID)
	if _, err := reg.Get(a.ID); !errors.Is(err, dberr.ErrNotFound) {
		t.Errorf("removed transaction: got %v", err)
	}
	if _, err := reg.Get(nil); !errors.Is(err, dberr.ErrInvalidArg) {
		t.Errorf("nil id: got %v", err)
	}
}

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry()
	tid := primitives.NewTransactionID()

	first := reg.GetOrCreate(tid)
	if second := reg.GetOrCreate(tid); second != first {
		t.Error("GetOrCreate built a second context for the same id")
	}
}

func TestRegistryConcurrency(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := reg.Begin()
			ctx.MarkPageDirty(pid(1, 0))
			reg.Remove(ctx.ID)
		}()
	}
	wg.Wait()
	if reg.Count() != 0 {
		t.Errorf("count = %d, want 0", reg.Count())
	}
}
