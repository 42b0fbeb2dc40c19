/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package errors provides the core's error kind: a single Error carrying a
// numeric CodeError and an optional chain of parent causes, returned by the
// manager's Listen, WrapFD, Send and Resolve and by tlsopts.Conn.Send. Other
// fallible functions in the tree (mgr.Wakeup, the proto/* codecs) return a
// plain error.
package errors

import "fmt"

// CodeError is a small numeric tag for an error kind, grouped by package range
// (see modules.go). Zero means "no specific kind".
type CodeError uint16

const UnknownError CodeError = 0

// Error is the interface the core's coded fallible operations return.
type Error interface {
	error
	Code() CodeError
	AddParent(parent ...error)
	Parents() []Error
	Is(err error) bool
	WithParent(parent ...error) Error
}

type kind struct {
	code CodeError
	msg  string
	args []interface{}
	par  []Error
}

// New creates an Error of the given kind with a formatted message, mirroring
// fmt.Errorf but keeping the CodeError alongside the string.
func New(code CodeError, format string, args ...interface{}) Error {
	return &kind{code: code, msg: format, args: args}
}

func (e *kind) Error() string {
	if len(e.args) == 0 {
		return e.msg
	}
	return fmt.Sprintf(e.msg, e.args...)
}

func (e *kind) Code() CodeError {
	return e.code
}

func (e *kind) AddParent(parent ...error) {
	for _, p := range parent {
		if p == nil {
			continue
		}
		if pe, ok := p.(Error); ok {
			e.par = append(e.par, pe)
		} else {
			e.par = append(e.par, New(UnknownError, p.Error()))
		}
	}
}

func (e *kind) Parents() []Error {
	return e.par
}

func (e *kind) Unwrap() error {
	if len(e.par) == 0 {
		return nil
	}
	return e.par[0]
}

func (e *kind) Is(err error) bool {
	if err == nil {
		return false
	}
	if oe, ok := err.(Error); ok {
		if e.code != UnknownError && oe.Code() == e.code {
			return true
		}
	}
	return e.Error() == err.Error()
}

// WithParent is a convenience constructor used throughout the core at the point
// an underlying (often stdlib) error is first observed: `return nil,
// errors.New(...).WithParent(err)`.
func (e *kind) WithParent(parent ...error) Error {
	e.AddParent(parent...)
	return e
}
