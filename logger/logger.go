/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
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

package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	SetLevel(lvl Level)
	SetOutput(w io.Writer)
	Entry() *Entry
}

type logger struct {
	mu  sync.RWMutex
	std *logrus.Logger
}

// New returns a Logger writing logrus key=value text lines to stderr at InfoLevel, the
// default every cmd/embednetd subcommand starts with.
func New() Logger {
	l := &logger{std: logrus.New()}
	l.std.SetOutput(os.Stderr)
	l.std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.std.SetLevel(logrus.InfoLevel)
	return l
}

func (l *logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.std.SetLevel(lvl.logrus())
}

func (l *logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.std.SetOutput(w)
}

func (l *logger) Entry() *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Entry{e: logrus.NewEntry(l.std)}
}

// Discard returns a Logger whose entries are dropped, used in tests that don't
// want to assert on log output.
func Discard() Logger {
	l := &logger{std: logrus.New()}
	l.std.SetOutput(io.Discard)
	return l
}
