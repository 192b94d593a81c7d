package tuple

import (
	"fmt"

	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/page"
)

// RecordID is the physical location of a stored tuple.
type RecordID struct {
	PageID page.PageDescriptor
	Slot   primitives.SlotID
}

func NewRecordID(pageID page.PageDescriptor, slot primitives.SlotID) *RecordID {
	return &RecordID{PageID: pageID, Slot: slot}
}

func (rid *RecordID) Equals(other *RecordID) bool {
	if rid == nil || other == nil {
		return false
	}
	return *rid == *other
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(%s, slot=%d)", rid.PageID, rid.Slot)
}
