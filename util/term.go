// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// DefaultTTY is the controlling terminal of the process.
const DefaultTTY = "/dev/tty"

func CheckIUTF8(fd int) (bool, error) {
	termios, err := unix.IoctlGetTermios(fd, GetTermios)
	if err != nil {
		return false, err
	}

	// Input is UTF-8 (since Linux 2.6.4)
	return (termios.Iflag & unix.IUTF8) != 0, nil
}

func SetIUTF8(fd int) error {
	termios, err := unix.IoctlGetTermios(fd, GetTermios)
	if err != nil {
		return err
	}

	// when the bit is set to 1, enable IUTF8
	termios.Iflag |= unix.IUTF8
	return unix.IoctlSetTermios(fd, SetTermios, termios)
}

// Restorer gives back a terminal mode taken by MakeRaw.
type Restorer interface {
	Restore() error
}

// TTY is a terminal device opened for both directions.
//
// The file descriptor is only reached through SyscallConn, never through
// Fd(), so the file stays in non-blocking mode and read deadlines work.
type TTY struct {
	f *os.File
}

// OpenTTY opens the named terminal device, DefaultTTY if name is empty.
func OpenTTY(name string) (*TTY, error) {
	if name == "" {
		name = DefaultTTY
	}
	f, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}
	return &TTY{f: f}, nil
}

// NewTTY wraps an already opened terminal file.
func NewTTY(f *os.File) *TTY {
	return &TTY{f: f}
}

func (t *TTY) Name() string                      { return t.f.Name() }
func (t *TTY) Read(p []byte) (int, error)        { return t.f.Read(p) }
func (t *TTY) Write(p []byte) (int, error)       { return t.f.Write(p) }
func (t *TTY) SetReadDeadline(d time.Time) error { return t.f.SetReadDeadline(d) }
func (t *TTY) Close() error                      { return t.f.Close() }

func (t *TTY) control(fn func(fd int) error) error {
	rc, err := t.f.SyscallConn()
	if err != nil {
		return err
	}

	var ferr error
	if err := rc.Control(func(fd uintptr) { ferr = fn(int(fd)) }); err != nil {
		return err
	}
	return ferr
}

func (t *TTY) IsTerminal() bool {
	ok := false
	t.control(func(fd int) error {
		ok = term.IsTerminal(fd)
		return nil
	})
	return ok
}

// report whether the line discipline treats input as UTF-8.
func (t *TTY) CheckIUTF8() (flag bool, err error) {
	err = t.control(func(fd int) (e error) {
		flag, e = CheckIUTF8(fd)
		return
	})
	return
}

// SetIUTF8 turns on UTF-8 input processing in the line discipline.
func (t *TTY) SetIUTF8() error {
	return t.control(SetIUTF8)
}

// MakeRaw puts the terminal into raw mode (non-canonical, no echo). The
// returned Restorer puts back the previous mode; calling it more than once
// is harmless.
func (t *TTY) MakeRaw() (Restorer, error) {
	var saved *term.State
	err := t.control(func(fd int) (e error) {
		saved, e = term.MakeRaw(fd)
		return
	})
	if err != nil {
		return nil, err
	}
	return &RawState{tty: t, saved: saved}, nil
}

// RawState holds the terminal mode captured by MakeRaw.
type RawState struct {
	tty   *TTY
	saved *term.State
	once  sync.Once
	err   error
}

func (s *RawState) Restore() error {
	s.once.Do(func() {
		s.err = s.tty.control(func(fd int) error {
			return term.Restore(fd, s.saved)
		})
	})
	return s.err
}
