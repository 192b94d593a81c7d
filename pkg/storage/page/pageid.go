package page

import (
	"fmt"

	"pagekernel/pkg/primitives"
)

// PageDescriptor addresses a page within the database: the owning table and
// the page's index in that table's file. It is a comparable value type and
// can be used directly as a map key.
type PageDescriptor struct {
	tableID primitives.FileID
	pageNum primitives.PageNumber
}

func NewPageDescriptor(tableID primitives.FileID, pageNum primitives.PageNumber) PageDescriptor {
	return PageDescriptor{tableID: tableID, pageNum: pageNum}
}

func (pd PageDescriptor) TableID() primitives.FileID {
	return pd.tableID
}

func (pd PageDescriptor) PageNo() primitives.PageNumber {
	return pd.pageNum
}

func (pd PageDescriptor) Equals(other PageDescriptor) bool {
	return pd == other
}

func (pd PageDescriptor) String() string {
	return fmt.Sprintf("PageDescriptor(table=%d, page=%d)", pd.tableID, pd.pageNum)
}
