package heap

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
	"pagekernel/pkg/types"
)

// directSource reads pages straight from the file, bypassing any cache.
type directSource struct {
	file  *HeapFile
	reads int
}

func (s *directSource) GetPage(_ *primitives.TransactionID, pid page.PageDescriptor, _ page.Permissions) (page.Page, error) {
	s.reads++
	return s.file.ReadPage(pid)
}

func newTestHeapFile(t *testing.T, td *tuple.TupleDescription) *HeapFile {
	t.Helper()
	hf, err := NewHeapFile(primitives.Filepath(filepath.Join(t.TempDir(), "t.dat")), td)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	t.Cleanup(func() { hf.Close() })
	return hf
}

func TestHeapFile_AddEmptyPageAndReadBack(t *testing.T) {
	td := mustTupleDesc(t, types.IntType)
	hf := newTestHeapFile(t, td)

	pid, err := hf.AddEmptyPage()
	if err != nil {
		t.Fatalf("AddEmptyPage: %v", err)
	}
	if pid.TableID() != hf.GetID() || pid.PageNo() != 0 {
		t.Errorf("new page = %s, want table %d page 0", pid, hf.GetID())
	}

	p, err := hf.ReadPage(pid)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	hp := p.(*HeapPage)
	if hp.GetNumEmptySlots() != hp.NumSlots() {
		t.Errorf("fresh page has %d of %d slots free", hp.GetNumEmptySlots(), hp.NumSlots())
	}

	if err := hp.AddTuple(intTuple(td, 42)); err != nil {
		t.Fatalf("AddTuple: %v", err)
	}
	if err := hf.WritePage(hp); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	p, err = hf.ReadPage(pid)
	if err != nil {
		t.Fatalf("ReadPage after write: %v", err)
	}
	if got := tupleValues(p.(*HeapPage)); !slices.Equal(got, []int32{42}) {
		t.Errorf("read back %v, want [42]", got)
	}

	n, err := hf.NumPages()
	if err != nil {
		t.Fatalf("NumPages: %v", err)
	}
	if n != 1 {
		t.Errorf("NumPages = %d, want 1", n)
	}
}

func TestHeapFile_ReadPageErrors(t *testing.T) {
	hf := newTestHeapFile(t, mustTupleDesc(t, types.IntType))

	tests := []struct {
		name string
		pid  page.PageDescriptor
	}{
		{"read past end", page.NewPageDescriptor(hf.GetID(), 0)},
		{"foreign page", page.NewPageDescriptor(hf.GetID()+1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := hf.ReadPage(tt.pid); !errors.Is(err, dberr.ErrInvalidArg) {
				t.Errorf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestHeapFile_ImageCodecOption(t *testing.T) {
	td := mustTupleDesc(t, types.IntType)
	hf, err := NewHeapFile(primitives.Filepath(filepath.Join(t.TempDir(), "lz.dat")), td, WithImageCodec(page.LZ4Codec{}))
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	defer hf.Close()

	if name := hf.Codec().Name(); name != "lz4" {
		t.Errorf("codec = %s, want lz4", name)
	}
}

func TestHeapFileIterator_ScansAllPages(t *testing.T) {
	td := mustTupleDesc(t, types.IntType)
	hf := newTestHeapFile(t, td)

	perPage := TupleCount(td.GetSize())
	total := perPage + 5

	var current *HeapPage
	for i := 0; i < total; i++ {
		if current == nil || current.GetNumEmptySlots() == 0 {
			if current != nil {
				if err := hf.WritePage(current); err != nil {
					t.Fatalf("WritePage: %v", err)
				}
			}
			pid, err := hf.AddEmptyPage()
			if err != nil {
				t.Fatalf("AddEmptyPage: %v", err)
			}
			if current, err = NewEmptyHeapPage(pid, td, nil); err != nil {
				t.Fatalf("NewEmptyHeapPage: %v", err)
			}
		}
		if err := current.AddTuple(intTuple(td, int32(i))); err != nil {
			t.Fatalf("AddTuple(%d): %v", i, err)
		}
	}
	if err := hf.WritePage(current); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	// an empty trailing page must be skipped
	if _, err := hf.AddEmptyPage(); err != nil {
		t.Fatalf("AddEmptyPage: %v", err)
	}

	src := &directSource{file: hf}
	it := hf.Iterator(primitives.NewTransactionID(), src)

	if _, err := it.HasNext(); !errors.Is(err, dberr.ErrIteratorState) {
		t.Errorf("HasNext before Open: expected ITERATOR_STATE, got %v", err)
	}

	if err := it.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	var got []int32
	for {
		ok, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !ok {
			break
		}
		tup, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		f, _ := tup.GetField(0)
		got = append(got, f.IntValue())
	}

	if len(got) != total {
		t.Fatalf("scanned %d tuples, want %d", len(got), total)
	}
	for i, v := range got {
		if v != int32(i) {
			t.Errorf("tuple %d = %d", i, v)
		}
	}
	if src.reads != 3 {
		t.Errorf("page reads = %d, want 3", src.reads)
	}

	if _, err := it.Next(); err == nil {
		t.Error("Next past the end should fail")
	}

	if err := it.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if ok, err := it.HasNext(); err != nil || !ok {
		t.Errorf("HasNext after Rewind = %v, %v", ok, err)
	}
	if err := it.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
