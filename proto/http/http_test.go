package http

import "testing"

func TestTryParseSimpleGET(t *testing.T) {
	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"
	msg, n, ok := tryParse([]byte(raw))
	if !ok {
		t.Fatal("expected a complete parse")
	}
	if n != len(raw) {
		t.Fatalf("consumed %d, want %d", n, len(raw))
	}
	if msg.Method != "GET" || msg.URI != "/index.html" {
		t.Fatalf("got %+v", msg)
	}
}

func TestTryParseWaitsForBody(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nContent-Length: 5\r\n\r\nhel"
	_, _, ok := tryParse([]byte(raw))
	if ok {
		t.Fatal("expected incomplete body to block parsing")
	}
}

func TestTryParseContentLengthBody(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	msg, n, ok := tryParse([]byte(raw))
	if !ok {
		t.Fatal("expected a complete parse")
	}
	if string(msg.Body) != "hello" {
		t.Fatalf("got body %q", msg.Body)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d, want %d", n, len(raw))
	}
}

func TestDecodeChunked(t *testing.T) {
	raw := "5\r\nhello\r\n0\r\n\r\n"
	body, n, ok := decodeChunked([]byte(raw))
	if !ok {
		t.Fatal("expected complete chunk stream")
	}
	if string(body) != "hello" {
		t.Fatalf("got %q", body)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d, want %d", n, len(raw))
	}
}

func TestParseRange(t *testing.T) {
	start, end, ok := parseRange("bytes=0-99", 200)
	if !ok || start != 0 || end != 99 {
		t.Fatalf("got start=%d end=%d ok=%v", start, end, ok)
	}
	start, end, ok = parseRange("bytes=-50", 200)
	if !ok || start != 150 || end != 199 {
		t.Fatalf("suffix range: got start=%d end=%d ok=%v", start, end, ok)
	}
}
