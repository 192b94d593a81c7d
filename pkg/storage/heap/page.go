package heap

import (
	"bytes"
	"iter"
	"sync"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
	"pagekernel/pkg/tuple"
	"pagekernel/pkg/types"
)

// TupleCount is the number of fixed-width slots a page holds for tuples of
// tupleSize bytes: each slot costs tupleSize*8 bits of data plus one header
// bit.
func TupleCount(tupleSize uint32) int {
	if tupleSize == 0 {
		return 0
	}
	return (page.PageSize * 8) / (int(tupleSize)*8 + 1)
}

// HeaderSize is the number of bitmap bytes needed for numSlots slots.
func HeaderSize(numSlots int) int {
	return (numSlots + 7) / 8
}

// HeapPage is a slotted page of fixed-width tuples.
//
// Layout: a bitmap header of HeaderSize(n) bytes (slot i is bit i%8 of byte
// i/8, counting from the least significant bit; set means occupied),
// followed by n slots of tupleSize bytes each, followed by zero padding up
// to PageSize. Empty slots are zero-filled.
type HeapPage struct {
	pageID    page.PageDescriptor
	tupleDesc *tuple.TupleDescription
	codec     page.ImageCodec

	header   []byte
	tuples   []*tuple.Tuple
	numSlots int

	dirtier *primitives.TransactionID
	oldData []byte // before-image, encoded with codec
	mutex   sync.RWMutex
}

// NewEmptyHeapPage returns a page with every slot free. It is how a freshly
// appended page is formatted before the first insert.
//
// Parameters:
//   - pid:   the page this buffer will represent
//   - td:    schema of the tuples stored on the page
//   - codec: before-image codec; nil selects page.DefaultCodec
func NewEmptyHeapPage(pid page.PageDescriptor, td *tuple.TupleDescription, codec page.ImageCodec) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, page.PageSize), td, codec)
}

// NewHeapPage decodes data under schema td. The decoded contents also become
// the page's before-image. A nil codec selects page.DefaultCodec.
//
// Decoding depends only on its arguments. Every occupied slot yields a tuple whose RecordID is
// (pid, slot).
//
// Returns:
//   - SLOT_STATE when data is not exactly page.PageSize bytes
//   - CORRUPT_PAGE_DATA when an occupied slot does not parse under td
func NewHeapPage(pid page.PageDescriptor, data []byte, td *tuple.TupleDescription, codec page.ImageCodec) (*HeapPage, error) {
	if len(data) != page.PageSize {
		return nil, dberr.Newf(dberr.ErrSlotState, "invalid page data size: expected %d, got %d", page.PageSize, len(data)).
			At("DecodePage", "HeapPage")
	}
	if td == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArg, "page %s decoded without a schema", pid)
	}
	if codec == nil {
		codec = page.DefaultCodec
	}

	n := TupleCount(td.GetSize())
	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		codec:     codec,
		numSlots:  n,
		header:    make([]byte, HeaderSize(n)),
		tuples:    make([]*tuple.Tuple, n),
	}

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}

	old, err := codec.Encode(data)
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CodeIOFailure, "DecodePage", "HeapPage")
	}
	hp.oldData = old
	return hp, nil
}

// parsePageData fills the header and tuple cache from a raw page image.
func (hp *HeapPage) parsePageData(data []byte) error {
	headerLen := len(hp.header)
	copy(hp.header, data[:headerLen])

	tupleSize := int(hp.tupleDesc.GetSize())
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			continue
		}

		start := headerLen + i*tupleSize
		t, err := readTuple(bytes.NewReader(data[start:start+tupleSize]), hp.tupleDesc)
		if err != nil {
			return dberr.Wrap(err, dberr.CodeCorruptPage, "DecodePage", "HeapPage")
		}
		t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(i))
		hp.tuples[i] = t
	}

	// bits past the last slot carry no meaning and are not re-encoded
	for i := hp.numSlots; i < headerLen*8; i++ {
		hp.markSlotUsed(i, false)
	}
	return nil
}

func readTuple(r *bytes.Reader, td *tuple.TupleDescription) (*tuple.Tuple, error) {
	t := tuple.NewTuple(td)
	for i, fieldType := range td.Types {
		f, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, err
		}
		if err := t.SetField(primitives.ColumnID(i), f); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// GetID returns the descriptor this page was decoded for.
func (hp *HeapPage) GetID() page.PageDescriptor {
	return hp.pageID
}

// GetTupleDesc returns the schema every slot on this page is laid out for.
func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	return hp.tupleDesc
}

// IsDirty returns the transaction that last modified this page, or nil when
// the page is clean.
func (hp *HeapPage) IsDirty() *primitives.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

// MarkDirty sets or clears the dirty owner. A page has at most one owner;
// marking it dirty for a new transaction replaces the previous one. The
// buffer pool calls this on modification and after a flush.
func (hp *HeapPage) MarkDirty(dirty bool, tid *primitives.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// GetPageData encodes the page. The result always has PageSize bytes.
func (hp *HeapPage) GetPageData() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.encode()
}

// encode lays out header, slots and padding. Caller holds hp.mutex.
//
//	[header bitmap][slot 0]...[slot n-1][zero padding]
func (hp *HeapPage) encode() []byte {
	var buf bytes.Buffer
	buf.Write(hp.header)

	tupleSize := int(hp.tupleDesc.GetSize())
	empty := make([]byte, tupleSize)

	for i := 0; i < hp.numSlots; i++ {
		t := hp.tuples[i]
		if !hp.isSlotUsed(i) || t == nil {
			buf.Write(empty)
			continue
		}
		for j := primitives.ColumnID(0); j < hp.tupleDesc.NumFields(); j++ {
			f, _ := t.GetField(j)
			_ = f.Serialize(&buf)
		}
	}

	out := make([]byte, page.PageSize)
	copy(out, buf.Bytes())
	return out
}

// GetBeforeImage decodes the image captured at construction or by the last
// SetBeforeImage.
func (hp *HeapPage) GetBeforeImage() (page.Page, error) {
	hp.mutex.RLock()
	old := hp.oldData
	hp.mutex.RUnlock()

	data, err := hp.codec.Decode(old)
	if err != nil {
		return nil, dberr.Newf(dberr.ErrCorruptPage, "before-image of %s", hp.pageID).WithCause(err)
	}
	return NewHeapPage(hp.pageID, data, hp.tupleDesc, hp.codec)
}

// SetBeforeImage snapshots the current contents as the clean image.
func (hp *HeapPage) SetBeforeImage() error {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	enc, err := hp.codec.Encode(hp.encode())
	if err != nil {
		return dberr.Wrap(err, dberr.CodeIOFailure, "SetBeforeImage", "HeapPage")
	}
	hp.oldData = enc
	return nil
}

// AddTuple stores t in the lowest free slot and binds its RecordID.
//
// It fails with SCHEMA_MISMATCH when t's schema differs from the page's or
// a field is unset, and with SLOT_STATE when the page is full. A failed
// insert leaves the page unchanged.
func (hp *HeapPage) AddTuple(t *tuple.Tuple) error {
	if t == nil {
		return dberr.Newf(dberr.ErrInvalidArg, "nil tuple").At("AddTuple", "HeapPage")
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if !t.TupleDesc.Equals(hp.tupleDesc) {
		return dberr.Newf(dberr.ErrSchemaMismatch, "tuple schema %s does not match page schema %s", t.TupleDesc, hp.tupleDesc).
			At("AddTuple", "HeapPage")
	}
	if !t.IsComplete() {
		return dberr.Newf(dberr.ErrSchemaMismatch, "tuple has unset fields").At("AddTuple", "HeapPage")
	}

	slot := hp.findFirstEmptySlot()
	if slot < 0 {
		return dberr.Newf(dberr.ErrSlotState, "no empty slot available on %s", hp.pageID).At("AddTuple", "HeapPage")
	}

	hp.markSlotUsed(slot, true)
	hp.tuples[slot] = t
	t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(slot))
	return nil
}

// DeleteTuple frees the slot named by t's RecordID and unbinds it.
//
// The RecordID must point at this page and at an occupied slot; otherwise
// SLOT_STATE is returned and the page is unchanged.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return dberr.Newf(dberr.ErrSlotState, "tuple has no record ID").At("DeleteTuple", "HeapPage")
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	rid := t.RecordID
	if !rid.PageID.Equals(hp.pageID) {
		return dberr.Newf(dberr.ErrSlotState, "tuple is on %s, not %s", rid.PageID, hp.pageID).At("DeleteTuple", "HeapPage")
	}

	slot := int(rid.Slot)
	if slot >= hp.numSlots || !hp.isSlotUsed(slot) {
		return dberr.Newf(dberr.ErrSlotState, "tuple slot %d is already empty", slot).At("DeleteTuple", "HeapPage")
	}

	hp.markSlotUsed(slot, false)
	hp.tuples[slot] = nil
	t.RecordID = nil
	return nil
}

// NumSlots is the fixed slot count, TupleCount of the schema's tuple size.
func (hp *HeapPage) NumSlots() int {
	return hp.numSlots
}

// GetNumEmptySlots counts the free slots by scanning the header bitmap.
// The page store uses it to decide whether a page has room for an insert.
func (hp *HeapPage) GetNumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	empty := 0
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// IsSlotUsed reports whether slot i holds a tuple. Out-of-range slots are
// reported as unused.
func (hp *HeapPage) IsSlotUsed(i int) bool {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return i >= 0 && i < hp.numSlots && hp.isSlotUsed(i)
}

func (hp *HeapPage) isSlotUsed(i int) bool {
	return hp.header[i/8]&(1<<(i%8)) != 0
}

// markSlotUsed flips slot i's header bit. Caller holds hp.mutex.
func (hp *HeapPage) markSlotUsed(i int, used bool) {
	if used {
		hp.header[i/8] |= 1 << (i % 8)
	} else {
		hp.header[i/8] &^= 1 << (i % 8)
	}
}

// findFirstEmptySlot returns the lowest free slot, or -1 when full.
func (hp *HeapPage) findFirstEmptySlot() int {
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			return i
		}
	}
	return -1
}

// GetTuples returns the occupied tuples in slot order.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	out := make([]*tuple.Tuple, 0, hp.numSlots)
	for _, t := range hp.tuples {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Tuples yields the occupied tuples in ascending slot order. Each call
// starts a fresh pass over the slots.
func (hp *HeapPage) Tuples() iter.Seq[*tuple.Tuple] {
	return func(yield func(*tuple.Tuple) bool) {
		for i := 0; i < hp.numSlots; i++ {
			hp.mutex.RLock()
			t := hp.tuples[i]
			hp.mutex.RUnlock()

			if t != nil && !yield(t) {
				return
			}
		}
	}
}

// GetTupleAt returns the tuple in slot, or nil when the slot is free.
// Slots past NumSlots are a SLOT_STATE error.
func (hp *HeapPage) GetTupleAt(slot primitives.SlotID) (*tuple.Tuple, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	if int(slot) >= hp.numSlots {
		return nil, dberr.Newf(dberr.ErrSlotState, "slot index %d out of bounds", slot)
	}
	return hp.tuples[slot], nil
}
