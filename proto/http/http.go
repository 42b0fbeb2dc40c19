// Package http is the built-in incremental HTTP/1.1 protocol handler:
// request-line/header parsing off a connection's Recv buffer, chunked
// transfer decoding, and static file serving with ETag/Range support. It
// plugs into a mgr.Connection as a PFn, running ahead of the user handler the
// way every proto/* package in this tree does.
package http

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/textproto"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sabouaram/embednet/mgr"
	"github.com/sabouaram/embednet/vfs"
)

// Message is what EvHTTPMessage hands the user handler once a full
// request/response (headers plus, if present, a fully-buffered body) has
// arrived.
type Message struct {
	Method string
	URI    string
	Proto  string
	Status int // 0 for a request, the status code for a response
	Header textproto.MIMEHeader
	Body   []byte
}

// StatusCode returns the status code parsed from a response line (0 for a
// request). The parser stores it in Status and leaves URI empty for a
// response.
func (m Message) StatusCode() int { return m.Status }

// Handler parses incoming bytes off c.Recv incrementally as they accumulate.
// Once a message's header block and its declared body (Content-Length or
// chunked) are both buffered it fires EvHTTPHeaders and then EvHTTPMessage;
// EvHTTPHeaders does not fire earlier while the body is still arriving.
// Static file serving runs when Root is set and the request method is
// GET/HEAD, right after EvHTTPMessage has been fired; the user handler
// cannot stop it.
type Handler struct {
	Root vfs.FS // if non-nil, unmatched GET/HEAD requests are served from here
}

// Attach installs h as c's protocol handler.
func (h *Handler) Attach(c *mgr.Connection) {
	c.PFn = h.onEvent
}

func (h *Handler) onEvent(c *mgr.Connection, ev mgr.Event, _ interface{}) {
	if ev != mgr.EvRead {
		return
	}
	for {
		msg, consumed, ok := tryParse(c.Recv.Bytes())
		if !ok {
			return
		}
		c.Recv.Del(0, consumed)
		c.Fire(mgr.EvHTTPHeaders, msg)
		c.Fire(mgr.EvHTTPMessage, msg)
		if h.Root != nil && msg.Status == 0 && (msg.Method == "GET" || msg.Method == "HEAD") {
			h.serveStatic(c, msg)
		}
	}
}

// tryParse attempts to parse exactly one HTTP message out of buf. ok is
// false if more bytes are needed.
func tryParse(buf []byte) (Message, int, bool) {
	headerEnd := bytes.Index(buf, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		return Message{}, 0, false
	}
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(buf[:headerEnd+2])))
	line, err := r.ReadLine()
	if err != nil {
		return Message{}, 0, false
	}
	hdr, err := r.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return Message{}, 0, false
	}

	msg := Message{Header: hdr}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) == 3 && strings.HasPrefix(parts[2], "HTTP/") {
		msg.Method, msg.URI, msg.Proto = parts[0], parts[1], parts[2]
	} else if len(parts) >= 2 && strings.HasPrefix(parts[0], "HTTP/") {
		msg.Proto = parts[0]
		msg.Status, _ = strconv.Atoi(parts[1])
	}

	bodyStart := headerEnd + 4
	if strings.EqualFold(hdr.Get("Transfer-Encoding"), "chunked") {
		body, n, ok := decodeChunked(buf[bodyStart:])
		if !ok {
			return Message{}, 0, false
		}
		msg.Body = body
		return msg, bodyStart + n, true
	}

	if cl := hdr.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return Message{}, 0, false
		}
		if len(buf) < bodyStart+n {
			return Message{}, 0, false
		}
		msg.Body = append([]byte(nil), buf[bodyStart:bodyStart+n]...)
		return msg, bodyStart + n, true
	}

	return msg, bodyStart, true
}

// decodeChunked consumes HTTP/1.1 chunked-encoded bytes starting right after
// the headers, returning the decoded body and how many input bytes it ate,
// or ok=false if the chunk stream isn't complete yet.
func decodeChunked(buf []byte) ([]byte, int, bool) {
	var out []byte
	pos := 0
	for {
		lineEnd := bytes.Index(buf[pos:], []byte("\r\n"))
		if lineEnd < 0 {
			return nil, 0, false
		}
		sizeLine := string(buf[pos : pos+lineEnd])
		if i := strings.IndexByte(sizeLine, ';'); i >= 0 {
			sizeLine = sizeLine[:i]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil {
			return nil, 0, false
		}
		pos += lineEnd + 2
		if size == 0 {
			trailerEnd := bytes.Index(buf[pos:], []byte("\r\n"))
			if trailerEnd < 0 {
				return nil, 0, false
			}
			return out, pos + trailerEnd + 2, true
		}
		if pos+int(size)+2 > len(buf) {
			return nil, 0, false
		}
		out = append(out, buf[pos:pos+int(size)]...)
		pos += int(size) + 2
	}
}

// serveStatic answers a GET/HEAD from h.Root: ETag (mtime+size) and Range
// support, directory listing when the path resolves to a directory.
func (h *Handler) serveStatic(c *mgr.Connection, msg Message) {
	clean := path.Clean("/" + msg.URI)
	info, err := h.Root.Stat(clean)
	if err != nil {
		writeStatus(c, 404, "Not Found", nil)
		return
	}
	if info.IsDir() {
		h.serveDirListing(c, clean)
		return
	}

	etag := fmt.Sprintf(`"%x-%x"`, info.ModTime().Unix(), info.Size())
	if msg.Header.Get("If-None-Match") == etag {
		writeStatus(c, 304, "Not Modified", map[string]string{"ETag": etag})
		return
	}

	servePath, gzipped := clean, false
	if acceptsGzip(msg.Header.Get("Accept-Encoding")) {
		if _, err := h.Root.Stat(clean + ".gz"); err == nil {
			servePath, gzipped = clean+".gz", true
		}
	}

	f, err := h.Root.Open(servePath)
	if err != nil {
		writeStatus(c, 500, "Internal Server Error", nil)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeStatus(c, 500, "Internal Server Error", nil)
		return
	}

	ct := mime.TypeByExtension(filepath.Ext(clean))
	if ct == "" {
		ct = "application/octet-stream"
	}

	if !gzipped && isSSI(clean) {
		data = h.expandSSI(data, path.Dir(clean), 0)
	}

	if gzipped {
		hdrs := map[string]string{"Content-Type": ct, "ETag": etag, "Content-Encoding": "gzip"}
		body := data
		if msg.Method == "HEAD" {
			body = nil
		}
		writeResponse(c, 200, "OK", hdrs, body)
		return
	}

	if rng := msg.Header.Get("Range"); rng != "" {
		if start, end, ok := parseRange(rng, len(data)); ok {
			writePartial(c, data[start:end+1], ct, etag, start, end, len(data))
			return
		}
	}

	hdrs := map[string]string{"Content-Type": ct, "ETag": etag}
	body := data
	if msg.Method == "HEAD" {
		body = nil
	}
	writeResponse(c, 200, "OK", hdrs, body)
}

func (h *Handler) serveDirListing(c *mgr.Connection, dir string) {
	entries, err := h.Root.ReadDir(dir)
	if err != nil {
		writeStatus(c, 500, "Internal Server Error", nil)
		return
	}
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, name, name)
	}
	b.WriteString("</ul></body></html>")
	writeResponse(c, 200, "OK", map[string]string{"Content-Type": "text/html; charset=utf-8"}, []byte(b.String()))
}

// parseRange parses a single-range "bytes=start-end" header.
func parseRange(h string, size int) (start, end int, ok bool) {
	h = strings.TrimPrefix(h, "bytes=")
	parts := strings.SplitN(h, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	if parts[0] == "" {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	if parts[1] == "" {
		return start, size - 1, true
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil || end >= size {
		end = size - 1
	}
	return start, end, true
}

func writePartial(c *mgr.Connection, body []byte, ct, etag string, start, end, total int) {
	hdrs := map[string]string{
		"Content-Type":  ct,
		"ETag":          etag,
		"Content-Range": fmt.Sprintf("bytes %d-%d/%d", start, end, total),
	}
	writeResponse(c, 206, "Partial Content", hdrs, body)
}

func writeStatus(c *mgr.Connection, code int, reason string, extra map[string]string) {
	writeResponse(c, code, reason, extra, nil)
}

func writeResponse(c *mgr.Connection, code int, reason string, hdrs map[string]string, body []byte) {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", code, reason)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(http1123))
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	for k, v := range hdrs {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	b.WriteString("\r\n")
	_, _ = c.Manager().Send(c, []byte(b.String()))
	if len(body) > 0 {
		_, _ = c.Manager().Send(c, body)
	}
}

const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"
