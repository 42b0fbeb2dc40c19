/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config loads the settings every binary built on this module needs:
// DNS servers, timer granularity, TLS options, and static file roots. It is a
// flat settings struct, not a pluggable component registry: embednet has one
// configuration surface, not a set of swappable service backends.
package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	liberr "github.com/sabouaram/embednet/errors"
)

// Network holds one listen or connect URL plus its role label, e.g.
// {Name: "http", URL: "tcp://0.0.0.0:8080"}.
type Network struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// TLSOptions mirrors the subset of tlsopts.Options a config file can set.
type TLSOptions struct {
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	MinVersion string `mapstructure:"min_version"`
}

// Settings is the fully-decoded configuration tree.
type Settings struct {
	DNS4         string       `mapstructure:"dns4"`
	DNS6         string       `mapstructure:"dns6"`
	DNSTimeoutMS int64        `mapstructure:"dns_timeout_ms"`
	UseDNS6      bool         `mapstructure:"use_dns6"`
	TimerGranMS  int64        `mapstructure:"timer_granularity_ms"`
	StaticRoot   string       `mapstructure:"static_root"`
	Networks     []Network    `mapstructure:"networks"`
	TLS          TLSOptions   `mapstructure:"tls"`
}

// DefaultSettings mirrors mgr.Init's own DNS defaults, plus a 100 ms timer
// granularity, so a Manager built from an empty/missing config file still
// behaves sensibly.
func DefaultSettings() Settings {
	return Settings{
		DNS4:         "udp://8.8.8.8:53",
		DNS6:         "udp://[2001:4860:4860::8888]:53",
		DNSTimeoutMS: 3000,
		TimerGranMS:  100,
	}
}

// Manager owns the viper instance and the backing filesystem (afero, so
// tests can substitute an in-memory fs instead of touching disk).
type Manager struct {
	v  *viper.Viper
	fs afero.Fs
}

// New builds a Manager backed by fs (pass afero.NewOsFs() for the real
// filesystem, afero.NewMemMapFs() in tests).
func New(fs afero.Fs) *Manager {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	return &Manager{v: v, fs: fs}
}

// Load reads path (yaml/json/toml, by extension) into a Settings, seeded
// with DefaultSettings for any key the file doesn't set.
func (m *Manager) Load(path string) (Settings, liberr.Error) {
	s := DefaultSettings()

	if ext := extOf(path); ext != "" {
		m.v.SetConfigType(ext)
	}
	m.v.SetConfigFile(path)

	if err := m.v.ReadInConfig(); err != nil {
		return s, liberr.New(liberr.MinPkgConfig, "read config %q", path).WithParent(err)
	}
	if err := m.v.Unmarshal(&s); err != nil {
		return s, liberr.New(liberr.MinPkgConfig, "decode config %q", path).WithParent(err)
	}
	return s, nil
}

// Watch installs a reload callback invoked whenever the underlying file
// changes on disk (viper.WatchConfig), combining a reload-before/after hook
// pair into a single callback.
func (m *Manager) Watch(onChange func(Settings)) {
	m.v.OnConfigChange(func(_ fsnotify.Event) {
		s := DefaultSettings()
		if err := m.v.Unmarshal(&s); err == nil {
			onChange(s)
		}
	})
	m.v.WatchConfig()
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i+1:]
}
