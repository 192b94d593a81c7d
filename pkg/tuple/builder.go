package tuple

import (
	"fmt"

	"pagekernel/pkg/primitives"
	"pagekernel/pkg/types"
)

// Builder fills a tuple column by column and reports the first error at
// Build time.
//
//	t, err := tuple.NewBuilder(td).AddInt(1).AddString("ada").Build()
type Builder struct {
	tuple        *Tuple
	currentIndex primitives.ColumnID
	err          error
}

func NewBuilder(td *TupleDescription) *Builder {
	return &Builder{tuple: NewTuple(td)}
}

func (b *Builder) AddInt(value int32) *Builder {
	return b.AddField(types.NewIntField(value))
}

func (b *Builder) AddString(value string) *Builder {
	return b.AddField(types.NewStringField(value))
}

func (b *Builder) AddFloat(value float64) *Builder {
	return b.AddField(types.NewFloatField(value))
}

func (b *Builder) AddBool(value bool) *Builder {
	return b.AddField(types.NewBoolField(value))
}

func (b *Builder) AddField(field types.Field) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.tuple.SetField(b.currentIndex, field); err != nil {
		b.err = fmt.Errorf("field %d: %w", b.currentIndex, err)
		return b
	}
	b.currentIndex++
	return b
}

func (b *Builder) Build() (*Tuple, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.currentIndex != b.tuple.TupleDesc.NumFields() {
		return nil, fmt.Errorf("incomplete tuple: set %d of %d fields",
			b.currentIndex, b.tuple.TupleDesc.NumFields())
	}
	return b.tuple, nil
}

// MustBuild panics on error. Intended for tests and fixtures.
func (b *Builder) MustBuild() *Tuple {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
