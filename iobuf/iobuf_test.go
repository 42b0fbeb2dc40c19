package iobuf_test

import (
	"testing"

	"github.com/sabouaram/embednet/iobuf"
)

func TestResizeGrowPreservesContent(t *testing.T) {
	b := iobuf.New(8)
	b.Add(0, []byte("hello"))
	b.Resize(20)
	if b.Len() != 20 {
		t.Fatalf("expected len 20, got %d", b.Len())
	}
	if string(b.Bytes()[:5]) != "hello" {
		t.Fatalf("content not preserved: %q", b.Bytes()[:5])
	}
	if b.Cap()%b.Align() != 0 {
		t.Fatalf("cap %d not a multiple of align %d", b.Cap(), b.Align())
	}
}

func TestAddInsertsAtOffset(t *testing.T) {
	b := iobuf.New(1)
	b.Add(0, []byte("ac"))
	b.Add(1, []byte("b"))
	if string(b.Bytes()) != "abc" {
		t.Fatalf("expected abc, got %q", string(b.Bytes()))
	}
}

func TestDelRemovesAndShifts(t *testing.T) {
	b := iobuf.New(1)
	b.Add(0, []byte("abcdef"))
	b.Del(1, 2)
	if string(b.Bytes()) != "adef" {
		t.Fatalf("expected adef, got %q", string(b.Bytes()))
	}
}

func TestZeroTruncates(t *testing.T) {
	b := iobuf.New(4)
	b.Add(0, []byte("data"))
	b.Zero()
	if b.Len() != 0 {
		t.Fatalf("expected len 0 after Zero, got %d", b.Len())
	}
}

func TestInvariantAlwaysHolds(t *testing.T) {
	b := iobuf.New(16)
	sizes := []int{0, 3, 100, 5, 1000, 0}
	for _, s := range sizes {
		b.Resize(s)
		if b.Len() > b.Cap() {
			t.Fatalf("len %d exceeds cap %d", b.Len(), b.Cap())
		}
		if b.Cap()%b.Align() != 0 {
			t.Fatalf("cap %d not multiple of align %d", b.Cap(), b.Align())
		}
	}
}
