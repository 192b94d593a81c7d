package primitives

import (
	"path/filepath"
	"testing"
)

func TestFilepath_HashStable(t *testing.T) {
	dir := t.TempDir()
	p := Filepath(filepath.Join(dir, "users.dat"))

	if p.Hash() != p.Hash() {
		t.Fatal("hash is not deterministic")
	}

	dotted := Filepath(filepath.Join(dir, ".", "users.dat"))
	if p.Hash() != dotted.Hash() {
		t.Errorf("equivalent paths hash differently: %d vs %d", p.Hash(), dotted.Hash())
	}

	other := Filepath(filepath.Join(dir, "orders.dat"))
	if p.Hash() == other.Hash() {
		t.Error("distinct paths produced the same table id")
	}
}

func TestFilepath_WithExt(t *testing.T) {
	tests := []struct {
		in   Filepath
		ext  string
		want Filepath
	}{
		{"data/users.dat", "idx", "data/users.idx"},
		{"data/users.dat", ".bak", "data/users.bak"},
		{"data/users", "dat", "data/users.dat"},
	}

	for _, tt := range tests {
		if got := tt.in.WithExt(tt.ext); got != tt.want {
			t.Errorf("%s.WithExt(%q) = %s, want %s", tt.in, tt.ext, got, tt.want)
		}
	}
}

func TestTransactionID(t *testing.T) {
	a := NewTransactionID()
	b := NewTransactionID()

	if a.Equals(b) {
		t.Error("distinct transactions compare equal")
	}
	if !a.Equals(a) {
		t.Error("transaction does not equal itself")
	}

	var none *TransactionID
	if none.Equals(a) || a.Equals(none) {
		t.Error("nil transaction id compared equal")
	}
	if none.String() != "TID-none" {
		t.Errorf("unexpected nil string %q", none.String())
	}
}
