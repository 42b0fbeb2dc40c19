package http

import (
	"bytes"
	"path"
	"path/filepath"
	"strings"
)

// maxSSIDepth bounds recursive <!--#include--> expansion so a file that
// includes itself (directly or via a cycle) can't recurse forever.
const maxSSIDepth = 5

func acceptsGzip(acceptEncoding string) bool {
	for _, enc := range strings.Split(acceptEncoding, ",") {
		if strings.EqualFold(strings.TrimSpace(strings.SplitN(enc, ";", 2)[0]), "gzip") {
			return true
		}
	}
	return false
}

func isSSI(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".shtml" || ext == ".shtm"
}

var ssiInclude = []byte("<!--#include")

// expandSSI replaces every <!--#include virtual="path" --> or
// <!--#include file="path" --> directive in data with the named file's
// contents, resolved relative to dir. Directives found past maxSSIDepth
// nested includes are left untouched rather than expanded.
func (h *Handler) expandSSI(data []byte, dir string, depth int) []byte {
	if depth >= maxSSIDepth {
		return data
	}
	var out bytes.Buffer
	rest := data
	for {
		idx := bytes.Index(rest, ssiInclude)
		if idx < 0 {
			out.Write(rest)
			break
		}
		out.Write(rest[:idx])
		end := bytes.Index(rest[idx:], []byte("-->"))
		if end < 0 {
			out.Write(rest[idx:])
			break
		}
		directive := string(rest[idx : idx+end])
		rest = rest[idx+end+3:]

		target := ssiTarget(directive)
		if target == "" {
			continue
		}
		incPath := target
		if !path.IsAbs(incPath) {
			incPath = path.Join(dir, incPath)
		}
		body, err := h.readFile(incPath)
		if err != nil {
			continue
		}
		if isSSI(incPath) {
			body = h.expandSSI(body, path.Dir(incPath), depth+1)
		}
		out.Write(body)
	}
	return out.Bytes()
}

func ssiTarget(directive string) string {
	for _, attr := range []string{"virtual=\"", "file=\""} {
		if i := strings.Index(directive, attr); i >= 0 {
			rest := directive[i+len(attr):]
			if j := strings.IndexByte(rest, '"'); j >= 0 {
				return rest[:j]
			}
		}
	}
	return ""
}

func (h *Handler) readFile(clean string) ([]byte, error) {
	f, err := h.Root.Open(clean)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var b bytes.Buffer
	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return b.Bytes(), nil
}
