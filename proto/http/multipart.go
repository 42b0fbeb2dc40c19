package http

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
)

// Part is one section of a multipart/form-data body, fully buffered.
type Part struct {
	Name     string
	Filename string
	Header   map[string][]string
	Data     []byte
}

// ParseMultipart splits msg.Body into its parts using the boundary declared
// in its Content-Type header. It returns an error if the message isn't
// multipart or the boundary is missing/malformed.
func ParseMultipart(msg Message) ([]Part, error) {
	ct := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, err
	}
	if mediaType != "multipart/form-data" && mediaType != "multipart/mixed" {
		return nil, errors.New("not a multipart message")
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, errors.New("multipart message missing boundary")
	}

	r := multipart.NewReader(bytes.NewReader(msg.Body), boundary)
	var parts []Part
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{
			Name:     p.FormName(),
			Filename: p.FileName(),
			Header:   map[string][]string(p.Header),
			Data:     data,
		})
	}
	return parts, nil
}

// SaveUpload writes every file part (one with a non-empty Filename) in parts
// through dest, keyed by form field name. dest typically wraps an
// afero.Fs-backed destination directory; this package stays storage-agnostic
// since vfs.FS is read-only by design.
func SaveUpload(parts []Part, dest func(fieldName, filename string, data []byte) error) (int, error) {
	n := 0
	for _, p := range parts {
		if p.Filename == "" {
			continue
		}
		if err := dest(p.Name, p.Filename, p.Data); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
