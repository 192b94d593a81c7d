package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberr "pagekernel/pkg/error"
	"pagekernel/pkg/primitives"
	"pagekernel/pkg/storage/heap"
	"pagekernel/pkg/tuple"
	"pagekernel/pkg/types"
)

// writeTable creates a heap file with one page holding rows and one empty
// page after it.
func writeTable(t *testing.T, rows map[int32]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.dat")
	td, err := parseSchema("int,string", "id,name")
	require.NoError(t, err)

	hf, err := heap.NewHeapFile(primitives.Filepath(path), td)
	require.NoError(t, err)
	defer hf.Close()

	pid, err := hf.AddEmptyPage()
	require.NoError(t, err)
	hp, err := heap.NewEmptyHeapPage(pid, td, hf.Codec())
	require.NoError(t, err)
	for id, name := range rows {
		require.NoError(t, hp.AddTuple(tuple.NewBuilder(td).AddInt(id).AddString(name).MustBuild()))
	}
	require.NoError(t, hf.WritePage(hp))

	_, err = hf.AddEmptyPage()
	require.NoError(t, err)
	return path
}

func TestParseSchema(t *testing.T) {
	td, err := parseSchema("int, string ,bool", "")
	require.NoError(t, err)
	assert.Equal(t, []types.Type{types.IntType, types.StringType, types.BoolType}, td.Types)
	name, err := td.GetFieldName(2)
	require.NoError(t, err)
	assert.Equal(t, "col2", name)

	_, err = parseSchema("int,decimal", "")
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))

	_, err = parseSchema("int,int", "a")
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))
}

func TestNewTable(t *testing.T) {
	out := newTable([]string{"slot", "name"}, [][]string{{"0", "alice"}, {"3", "bob"}}).String()
	assert.Contains(t, out, "slot")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")

	assert.True(t, styleCell(0, 1).GetBold(), "header row")
	assert.False(t, styleCell(1, 1).GetBold(), "first data row")
	assert.False(t, styleCell(2, 0).GetBold())
}

func TestRun_DumpsPages(t *testing.T) {
	path := writeTable(t, map[int32]string{7: "alice"})

	var out bytes.Buffer
	require.NoError(t, run([]string{"-table", path, "-types", "int,string", "-names", "id,name"}, &out))

	report := out.String()
	assert.Contains(t, report, "alice")
	assert.Contains(t, report, "digest")
	assert.Contains(t, report, "page 0")
	assert.Contains(t, report, "page 1")
	assert.Contains(t, report, "(no occupied slots)")
	assert.Contains(t, report, "2 pages, 1 rows")
}

func TestReadPages_RowDigest(t *testing.T) {
	path := writeTable(t, map[int32]string{7: "alice", 8: "bob"})
	td, err := parseSchema("int,string", "id,name")
	require.NoError(t, err)
	hf, err := heap.NewHeapFile(primitives.Filepath(path), td)
	require.NoError(t, err)
	defer hf.Close()

	pages, err := readPages(hf, 0)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Len(t, pages[0].rows, 2)

	want := map[string]bool{
		rowDigest(tuple.NewBuilder(td).AddInt(7).AddString("alice").MustBuild()): true,
		rowDigest(tuple.NewBuilder(td).AddInt(8).AddString("bob").MustBuild()):   true,
	}
	for _, row := range pages[0].rows {
		assert.Len(t, row.digest, 16)
		assert.True(t, want[row.digest], "unexpected digest %s for %v", row.digest, row.values)
	}
}

func TestRun_SinglePage(t *testing.T) {
	path := writeTable(t, map[int32]string{1: "bob"})

	var out bytes.Buffer
	require.NoError(t, run([]string{"-table", path, "-types", "int,string", "-page", "0"}, &out))
	assert.Contains(t, out.String(), "bob")
	assert.NotContains(t, out.String(), "page 1")

	err := run([]string{"-table", path, "-types", "int,string", "-page", "5"}, &out)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-types", "int"}, &out)
	assert.True(t, errors.Is(err, dberr.ErrInvalidArg))

	err = run([]string{"-table", filepath.Join(t.TempDir(), "missing.dat"), "-types", "int"}, &out)
	assert.True(t, errors.Is(err, dberr.ErrNotFound))
}
