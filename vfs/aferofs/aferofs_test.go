package aferofs

import (
	"io"
	"testing"

	"github.com/spf13/afero"
)

func TestOpenReadsContent(t *testing.T) {
	mem := afero.NewMemMapFs()
	_ = afero.WriteFile(mem, "/index.html", []byte("hello"), 0o644)
	fs := New(mem)

	f, err := fs.Open("/index.html")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
}

func TestReadDirListsEntries(t *testing.T) {
	mem := afero.NewMemMapFs()
	_ = afero.WriteFile(mem, "/static/a.txt", []byte("a"), 0o644)
	_ = afero.WriteFile(mem, "/static/b.txt", []byte("b"), 0o644)
	fs := New(mem)

	entries, err := fs.ReadDir("/static")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}
