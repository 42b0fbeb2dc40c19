package config

import (
	"testing"

	"github.com/spf13/afero"
)

func TestLoadAppliesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/embednet.yaml", []byte(`
dns4: "udp://1.1.1.1:53"
static_root: /var/www
networks:
  - name: http
    url: "tcp://0.0.0.0:8080"
`), 0o644)

	m := New(fs)
	s, lerr := m.Load("/embednet.yaml")
	if lerr != nil {
		t.Fatalf("Load: %v", lerr)
	}
	if s.DNS4 != "udp://1.1.1.1:53" {
		t.Fatalf("expected overridden DNS4, got %q", s.DNS4)
	}
	if s.DNS6 == "" {
		t.Fatal("expected default DNS6 to survive a partial config file")
	}
	if len(s.Networks) != 1 || s.Networks[0].URL != "tcp://0.0.0.0:8080" {
		t.Fatalf("expected one network entry, got %+v", s.Networks)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	m := New(afero.NewMemMapFs())
	if _, lerr := m.Load("/nope.yaml"); lerr == nil {
		t.Fatal("expected an error reading a missing config file")
	}
}
