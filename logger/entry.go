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

import "github.com/sirupsen/logrus"

// Entry is a scoped log line builder, e.g. log.Entry().WithField("conn", id).
type Entry struct {
	e *logrus.Entry
}

func (en *Entry) WithField(key string, val interface{}) *Entry {
	return &Entry{e: en.e.WithField(key, val)}
}

func (en *Entry) Debug(args ...interface{}) { en.e.Debug(args...) }
func (en *Entry) Info(args ...interface{})  { en.e.Info(args...) }
func (en *Entry) Warn(args ...interface{})  { en.e.Warn(args...) }
func (en *Entry) Error(args ...interface{}) { en.e.Error(args...) }

func (en *Entry) Debugf(format string, args ...interface{}) { en.e.Debugf(format, args...) }
func (en *Entry) Infof(format string, args ...interface{})  { en.e.Infof(format, args...) }
func (en *Entry) Warnf(format string, args ...interface{})  { en.e.Warnf(format, args...) }
func (en *Entry) Errorf(format string, args ...interface{}) { en.e.Errorf(format, args...) }
