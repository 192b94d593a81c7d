package iterator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/tuple"
	"pagekernel/pkg/types"
)

func intSource(t *testing.T, values ...int32) *TupleSliceIterator {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"v"})
	require.NoError(t, err)
	tuples := make([]*tuple.Tuple, len(values))
	for i, v := range values {
		tuples[i] = tuple.NewBuilder(td).AddInt(v).MustBuild()
	}
	return NewTupleSliceIterator(td, tuples)
}

func ints(t *testing.T, tuples []*tuple.Tuple) []int32 {
	t.Helper()
	out := make([]int32, len(tuples))
	for i, tup := range tuples {
		f, err := tup.GetField(0)
		require.NoError(t, err)
		out[i] = f.IntValue()
	}
	return out
}

func assertStateError(t *testing.T, it DbIterator) {
	t.Helper()
	_, err := it.HasNext()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState), "HasNext: %v", err)
	_, err = it.Next()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState), "Next: %v", err)
	assert.True(t, errors.Is(it.Rewind(), dberr.ErrIteratorState), "Rewind")
}

func TestTupleSliceIterator_Lifecycle(t *testing.T) {
	it := intSource(t, 1, 2, 3)
	assert.Equal(t, Unopened, it.State())
	assertStateError(t, it)

	require.NoError(t, it.Open())
	got, err := Collect(it)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ints(t, got))

	_, err = it.Next()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState), "Next past the end")

	require.NoError(t, it.Rewind())
	n, err := Count(it)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.Equal(t, Closed, it.State())
	assertStateError(t, it)

	// Closed -> Open starts over.
	require.NoError(t, it.Open())
	first, err := Take(it, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, ints(t, first))
}

func TestHasNextDoesNotConsume(t *testing.T) {
	it := intSource(t, 7)
	require.NoError(t, it.Open())

	for i := 0; i < 3; i++ {
		ok, err := it.HasNext()
		require.NoError(t, err)
		assert.True(t, ok)
	}
	tup, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, []int32{7}, ints(t, []*tuple.Tuple{tup}))

	ok, err := it.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
}

// doubler emits every child value twice.
type doubler struct {
	*UnaryOperator
	pending *tuple.Tuple
}

func newDoubler(t *testing.T, child DbIterator) *doubler {
	d := &doubler{}
	u, err := NewUnaryOperator(child, d.readNext)
	require.NoError(t, err)
	d.UnaryOperator = u
	return d
}

func (d *doubler) readNext() (*tuple.Tuple, error) {
	if d.pending != nil {
		p := d.pending
		d.pending = nil
		return p, nil
	}
	next, err := d.FetchNext()
	if err != nil || next == nil {
		return nil, err
	}
	d.pending = next
	return next, nil
}

func TestUnaryOperator(t *testing.T) {
	_, err := NewUnaryOperator(nil, nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))

	child := intSource(t, 1, 2)
	d := newDoubler(t, child)
	assertStateError(t, d)

	require.NoError(t, d.Open())
	assert.Equal(t, Opened, child.State())
	got, err := Collect(d)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 1, 2, 2}, ints(t, got))

	require.NoError(t, d.Rewind())
	got, err = Collect(d)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	require.NoError(t, d.Close())
	assert.Equal(t, Closed, child.State())
	assertStateError(t, d)
	assert.Same(t, child.GetTupleDesc(), d.GetTupleDesc())
}

type concat struct {
	*BinaryOperator
	leftDone bool
}

func (c *concat) GetTupleDesc() *tuple.TupleDescription {
	return c.GetLeftChild().GetTupleDesc()
}

func (c *concat) readNext() (*tuple.Tuple, error) {
	if !c.leftDone {
		tup, err := c.FetchLeft()
		if err != nil || tup != nil {
			return tup, err
		}
		c.leftDone = true
	}
	return c.FetchRight()
}

func TestBinaryOperator(t *testing.T) {
	_, err := NewBinaryOperator(nil, intSource(t), nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))
	_, err = NewBinaryOperator(intSource(t), nil, nil)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))

	left, right := intSource(t, 1, 2), intSource(t, 3)
	c := &concat{}
	b, err := NewBinaryOperator(left, right, c.readNext)
	require.NoError(t, err)
	c.BinaryOperator = b

	assertStateError(t, c)
	assert.Same(t, left.GetTupleDesc(), c.GetTupleDesc())
	require.NoError(t, c.Open())
	got, err := Collect(c)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ints(t, got))

	c.leftDone = false
	require.NoError(t, c.Rewind())
	got, err = Collect(c)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ints(t, got))

	require.NoError(t, c.Close())
	assert.Equal(t, Closed, left.State())
	assert.Equal(t, Closed, right.State())
	assert.Same(t, left, c.GetLeftChild())
	assert.Same(t, right, c.GetRightChild())
}

func TestSliceIterator(t *testing.T) {
	it := NewSliceIterator([]string{"a", "b"})
	assert.Equal(t, 2, it.Len())

	v, err := it.Peek()
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, it.Remaining())

	it.Next()
	v, _ = it.Next()
	assert.Equal(t, "b", v)
	assert.False(t, it.HasNext())
	_, err = it.Next()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState))
	_, err = it.Peek()
	assert.Error(t, err)

	it.Rewind()
	assert.Equal(t, 2, it.Remaining())
	assert.Equal(t, []string{"a", "b"}, it.GetData())
}

func TestHelpers(t *testing.T) {
	it := intSource(t, 1, 2, 3, 4)
	require.NoError(t, it.Open())

	sum, err := Reduce(it, int32(0), func(acc int32, tup *tuple.Tuple) (int32, error) {
		f, err := tup.GetField(0)
		return acc + f.IntValue(), err
	})
	require.NoError(t, err)
	assert.Equal(t, int32(10), sum)

	require.NoError(t, it.Rewind())
	none, err := Take(it, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	stop := errors.New("stop")
	seen := 0
	err = ForEach(it, func(*tuple.Tuple) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}
