package join

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagekernel/pkg/config"
	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/iterator"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/tuple"
	"pagekernel/pkg/types"
)

func intDesc(t *testing.T, name string) *tuple.TupleDescription {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{name})
	require.NoError(t, err)
	return td
}

func intSource(t *testing.T, name string, values ...int32) *iterator.TupleSliceIterator {
	t.Helper()
	td := intDesc(t, name)
	tuples := make([]*tuple.Tuple, len(values))
	for i, v := range values {
		tuples[i] = tuple.NewBuilder(td).AddInt(v).MustBuild()
	}
	return iterator.NewTupleSliceIterator(td, tuples)
}

func stringSource(t *testing.T, values ...string) *iterator.TupleSliceIterator {
	t.Helper()
	td, err := tuple.NewTupleDesc([]types.Type{types.StringType}, []string{"s"})
	require.NoError(t, err)
	tuples := make([]*tuple.Tuple, len(values))
	for i, v := range values {
		tuples[i] = tuple.NewBuilder(td).AddString(v).MustBuild()
	}
	return iterator.NewTupleSliceIterator(td, tuples)
}

// rows renders each joined tuple as "l,r".
func rows(t *testing.T, it iterator.DbIterator) []string {
	t.Helper()
	var out []string
	for {
		hasNext, err := it.HasNext()
		require.NoError(t, err)
		if !hasNext {
			return out
		}
		tup, err := it.Next()
		require.NoError(t, err)
		l, err := tup.GetField(0)
		require.NoError(t, err)
		r, err := tup.GetField(1)
		require.NoError(t, err)
		out = append(out, fmt.Sprintf("%s,%s", l, r))
	}
}

// nestedLoopRows is the reference answer: every pair in child order that
// satisfies pred.
func nestedLoopRows(t *testing.T, pred *JoinPredicate, left, right []int32) []string {
	t.Helper()
	var out []string
	ltd, rtd := intDesc(t, "l"), intDesc(t, "r")
	for _, lv := range left {
		for _, rv := range right {
			ok, err := pred.Filter(
				tuple.NewBuilder(ltd).AddInt(lv).MustBuild(),
				tuple.NewBuilder(rtd).AddInt(rv).MustBuild())
			require.NoError(t, err)
			if ok {
				out = append(out, fmt.Sprintf("%d,%d", lv, rv))
			}
		}
	}
	return out
}

func mustPredicate(t *testing.T, op primitives.Predicate) *JoinPredicate {
	t.Helper()
	p, err := NewJoinPredicate(0, op, 0)
	require.NoError(t, err)
	return p
}

func openJoin(t *testing.T, op primitives.Predicate, left, right []int32, opts ...Option) *Join {
	t.Helper()
	j, err := NewJoin(mustPredicate(t, op), intSource(t, "l", left...), intSource(t, "r", right...), opts...)
	require.NoError(t, err)
	require.NoError(t, j.Open())
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJoin_EqualsCrossesDuplicateKeys(t *testing.T) {
	j := openJoin(t, primitives.Equals, []int32{1, 1, 2}, []int32{1, 2, 2})

	got := rows(t, j)
	assert.Len(t, got, 4)
	assert.Equal(t, []string{"1,1", "1,1", "2,2", "2,2"}, got)
}

func TestJoin_GreaterThanSingleMatch(t *testing.T) {
	j := openJoin(t, primitives.GreaterThan, []int32{1}, []int32{0, 2})
	assert.Equal(t, []string{"1,0"}, rows(t, j))
}

func TestJoin_SingleBlockOrder(t *testing.T) {
	tests := []struct {
		op   primitives.Predicate
		want []string
	}{
		{primitives.Equals, []string{"1,1", "2,2", "3,3"}},
		{primitives.LessThan, []string{"1,2", "1,3", "2,3"}},
		{primitives.LessThanOrEqual, []string{"1,1", "1,2", "1,3", "2,2", "2,3", "3,3"}},
		{primitives.GreaterThan, []string{"3,2", "3,1", "2,1"}},
		{primitives.GreaterThanOrEqual, []string{"3,3", "3,2", "3,1", "2,2", "2,1", "1,1"}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			j := openJoin(t, tt.op, []int32{3, 1, 2}, []int32{2, 3, 1})
			assert.Equal(t, tt.want, rows(t, j))
		})
	}
}

func TestJoin_MatchesNestedLoopWithSmallBlocks(t *testing.T) {
	left := []int32{5, 3, 3, 8, 1, 3, 9, 5, 2, 7, 3}
	right := []int32{3, 5, 0, 3, 9, 3, 4, 5, 1, 3}

	ops := []primitives.Predicate{
		primitives.Equals,
		primitives.NotEqual,
		primitives.GreaterThan,
		primitives.GreaterThanOrEqual,
		primitives.LessThan,
		primitives.LessThanOrEqual,
		primitives.Like,
	}
	// Int columns are 4 bytes wide.
	memories := []int{4, 8, 12, 20, 1 << 20}

	for _, op := range ops {
		for _, mem := range memories {
			t.Run(fmt.Sprintf("%s/%d", op, mem), func(t *testing.T) {
				j := openJoin(t, op, left, right, WithBlockMemory(mem))
				got := rows(t, j)
				assert.ElementsMatch(t, nestedLoopRows(t, mustPredicate(t, op), left, right), got)
			})
		}
	}
}

func TestJoin_NotEqualsKeepsChildOrder(t *testing.T) {
	j := openJoin(t, primitives.NotEqual, []int32{2, 1}, []int32{1, 3})
	assert.Equal(t, []string{"2,1", "2,3", "1,3"}, rows(t, j))
}

func TestJoin_LikeOnStrings(t *testing.T) {
	p, err := NewJoinPredicate(0, primitives.Like, 0)
	require.NoError(t, err)
	j, err := NewJoin(p, stringSource(t, "apple", "pear"), stringSource(t, "app", "ea", "zz"))
	require.NoError(t, err)
	require.NoError(t, j.Open())
	defer j.Close()

	assert.Equal(t, []string{"apple,app", "pear,ea"}, rows(t, j))
}

func TestJoin_OutputSchema(t *testing.T) {
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	require.NoError(t, err)
	left := iterator.NewTupleSliceIterator(td, []*tuple.Tuple{
		tuple.NewBuilder(td).AddInt(7).AddString("seven").MustBuild(),
	})

	j, err := NewJoin(mustPredicate(t, primitives.Equals), left, intSource(t, "r", 7))
	require.NoError(t, err)

	out := j.GetTupleDesc()
	require.EqualValues(t, 3, out.NumFields())
	assert.Equal(t, []types.Type{types.IntType, types.StringType, types.IntType}, out.Types)

	require.NoError(t, j.Open())
	defer j.Close()
	tup, err := j.Next()
	require.NoError(t, err)
	name, err := tup.GetField(1)
	require.NoError(t, err)
	assert.Equal(t, "seven", name.StringValue())
	r, err := tup.GetField(2)
	require.NoError(t, err)
	assert.EqualValues(t, 7, r.IntValue())
}

func TestJoin_StateMachine(t *testing.T) {
	j, err := NewJoin(mustPredicate(t, primitives.Equals), intSource(t, "l", 1), intSource(t, "r", 1))
	require.NoError(t, err)

	assert.Equal(t, iterator.Unopened, j.State())
	_, err = j.Next()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState))
	_, err = j.HasNext()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState))
	assert.True(t, errors.Is(j.Rewind(), dberr.ErrIteratorState))
	assert.NotNil(t, j.GetTupleDesc())

	require.NoError(t, j.Open())
	assert.Equal(t, []string{"1,1"}, rows(t, j))
	_, err = j.Next()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState), "Next with nothing pending")

	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
	_, err = j.Next()
	assert.True(t, errors.Is(err, dberr.ErrIteratorState))
	assert.NotNil(t, j.GetTupleDesc())

	require.NoError(t, j.Open())
	assert.Equal(t, []string{"1,1"}, rows(t, j))
}

// rewindCounter counts how often the join restarts a child.
type rewindCounter struct {
	*iterator.TupleSliceIterator
	rewinds int
}

func (r *rewindCounter) Rewind() error {
	r.rewinds++
	return r.TupleSliceIterator.Rewind()
}

func TestJoin_RewindsRightOncePerLeftBlock(t *testing.T) {
	right := &rewindCounter{TupleSliceIterator: intSource(t, "r", 1, 2, 3)}
	j, err := NewJoin(mustPredicate(t, primitives.Equals), intSource(t, "l", 1, 2, 3, 4, 5), right, WithBlockMemory(8))
	require.NoError(t, err)
	require.NoError(t, j.Open())
	defer j.Close()

	assert.Equal(t, 3, right.rewinds)
	first := rows(t, j)
	assert.ElementsMatch(t, []string{"1,1", "2,2", "3,3"}, first)

	right.rewinds = 0
	require.NoError(t, j.Rewind())
	// One rewind from Join.Rewind itself, then one per left block.
	assert.Equal(t, 4, right.rewinds)
	assert.Equal(t, first, rows(t, j))
}

func TestJoin_EmptyInputs(t *testing.T) {
	assert.Empty(t, rows(t, openJoin(t, primitives.Equals, nil, []int32{1})))
	assert.Empty(t, rows(t, openJoin(t, primitives.Equals, []int32{1}, nil)))
}

func TestJoin_InvalidConstruction(t *testing.T) {
	_, err := NewJoin(nil, intSource(t, "l"), intSource(t, "r"))
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))

	_, err = NewJoin(mustPredicate(t, primitives.Equals), nil, intSource(t, "r"))
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))

	_, err = NewJoin(mustPredicate(t, primitives.Equals), intSource(t, "l"), stringSource(t))
	assert.True(t, errors.Is(err, dberr.ErrSchemaMismatch))

	p, err := NewJoinPredicate(3, primitives.Equals, 0)
	require.NoError(t, err)
	_, err = NewJoin(p, intSource(t, "l"), intSource(t, "r"))
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))

	_, err = NewJoinPredicate(0, primitives.Predicate(42), 0)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))
}

func TestJoin_BlockMemoryOption(t *testing.T) {
	j, err := NewJoin(mustPredicate(t, primitives.Equals), intSource(t, "l"), intSource(t, "r"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultJoinBlockMemory, j.BlockMemory())

	j, err = NewJoin(mustPredicate(t, primitives.Equals), intSource(t, "l"), intSource(t, "r"), WithBlockMemory(0))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultJoinBlockMemory, j.BlockMemory())

	j, err = NewJoin(mustPredicate(t, primitives.Equals), intSource(t, "l"), intSource(t, "r"), WithBlockMemory(64))
	require.NoError(t, err)
	assert.Equal(t, 64, j.BlockMemory())
}

func TestBlockCapacity(t *testing.T) {
	td := intDesc(t, "v")
	assert.Equal(t, 163840, blockCapacity(config.DefaultJoinBlockMemory, td))
	assert.Equal(t, 2, blockCapacity(9, td))
	assert.Equal(t, 1, blockCapacity(3, td))
}

func TestJoin_SetChildren(t *testing.T) {
	j := openJoin(t, primitives.Equals, []int32{1}, []int32{1})

	left, right := intSource(t, "l", 4, 5), intSource(t, "r", 5, 6)
	require.NoError(t, j.SetChildren([]iterator.DbIterator{left, right}))
	assert.Equal(t, iterator.Unopened, j.State())
	children := j.GetChildren()
	require.Len(t, children, 2)
	assert.Same(t, left, children[0])
	assert.Same(t, right, children[1])

	require.NoError(t, j.Open())
	assert.Equal(t, []string{"5,5"}, rows(t, j))

	assert.True(t, errors.Is(j.SetChildren([]iterator.DbIterator{left}), dberr.ErrInvalidArg))
	assert.True(t, errors.Is(j.SetChildren([]iterator.DbIterator{left, stringSource(t)}), dberr.ErrSchemaMismatch))
}

// failingSource errors on its nth fetch.
type failingSource struct {
	*iterator.TupleSliceIterator
	failAt, calls int
}

func (f *failingSource) HasNext() (bool, error) {
	f.calls++
	if f.calls >= f.failAt {
		return false, dberr.Newf(dberr.ErrLockWait, "lock wait aborted")
	}
	return f.TupleSliceIterator.HasNext()
}

func TestJoin_ChildErrorClosesOperator(t *testing.T) {
	right := &failingSource{TupleSliceIterator: intSource(t, "r", 1, 2, 3), failAt: 2}
	j, err := NewJoin(mustPredicate(t, primitives.Equals), intSource(t, "l", 1), right)
	require.NoError(t, err)

	err = j.Open()
	assert.True(t, errors.Is(err, dberr.ErrLockWait), "got %v", err)
	assert.Equal(t, iterator.Closed, j.State())
	assert.Equal(t, iterator.Closed, right.State())
	assert.NoError(t, j.Close())
}

func TestJoinPredicate_Filter(t *testing.T) {
	p := mustPredicate(t, primitives.LessThan)
	l := tuple.NewBuilder(intDesc(t, "l")).AddInt(1).MustBuild()
	r := tuple.NewBuilder(intDesc(t, "r")).AddInt(2).MustBuild()

	ok, err := p.Filter(l, r)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Filter(r, l)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Filter(nil, r)
	assert.Error(t, err)
	assert.Equal(t, "left[0] < right[0]", p.String())
}
