// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/ericwq/domterm/util"
)

// reply marker: C1 OSC-reply byte 0x9D, raw or in its UTF-8 form.
const (
	markerByte = 0x9D
	markerUTF8 = 0xC2
)

// Terminal is the input side of the controlling terminal.
type Terminal interface {
	io.Reader
	MakeRaw() (util.Restorer, error)
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

type iutf8Checker interface {
	CheckIUTF8() (bool, error)
}

type iutf8Setter interface {
	SetIUTF8() error
}

// Channel performs request/reply exchanges with the terminal. Only one
// exchange may run at a time on a given terminal; the channel does not
// arbitrate between concurrent readers.
type Channel struct {
	tty     Terminal
	reply   io.Writer // receives the fixed failure messages
	timeout time.Duration
	size    int
	utf8    bool // set IUTF8 while raw

	busy     atomic.Bool
	canceled atomic.Bool
}

func NewChannel(tty Terminal, reply io.Writer) *Channel {
	return &Channel{tty: tty, reply: reply, size: DefaultBufferSize}
}

// SetTimeout bounds one whole reply read. Zero blocks until the far end
// answers or closes the device.
func (c *Channel) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.timeout = d
}

// SetUTF8 asks for the IUTF8 input flag while an exchange holds raw mode,
// normally when the locale charset is UTF-8. Restoring the mode clears it.
func (c *Channel) SetUTF8(on bool) {
	c.utf8 = on
}

// SetBufferSize sets the initial reply buffer capacity.
func (c *Channel) SetBufferSize(n int) {
	if n < minBufferSize {
		n = minBufferSize
	}
	c.size = n
}

// Cancel ends the pending exchange and fails the later ones. It reports
// whether a pending reply read was interrupted.
func (c *Channel) Cancel() bool {
	c.canceled.Store(true)
	if !c.busy.Load() {
		return false
	}
	d, ok := c.tty.(deadliner)
	if !ok {
		return false
	}
	return d.SetReadDeadline(time.Now()) == nil
}

// ReadResponse reads one reply for a request the caller has already written.
// On failure the message is already written to the reply writer and the
// returned error matches ErrReported.
func (c *Channel) ReadResponse() (string, error) {
	c.busy.Store(true)
	defer c.busy.Store(false)

	state, err := c.makeRaw()
	if err != nil {
		return "", err
	}
	defer c.restore(state)

	return c.read()
}

// Exchange writes req to w and reads the reply. Raw mode is taken before the
// request goes out, so the reply can't be echoed by the line discipline.
func (c *Channel) Exchange(w io.Writer, req Request) (string, error) {
	c.busy.Store(true)
	defer c.busy.Store(false)

	state, err := c.makeRaw()
	if err != nil {
		return "", err
	}
	defer c.restore(state)

	util.Logger.Debug("send request", "op", int(req.Op), "payload", len(req.Payload))
	if _, err := io.WriteString(w, req.String()); err != nil {
		return "", report(c.reply, fmt.Errorf("cannot send request: %w", err))
	}
	return c.read()
}

func (c *Channel) makeRaw() (util.Restorer, error) {
	state, err := c.tty.MakeRaw()
	if err != nil {
		return nil, report(c.reply, fmt.Errorf("cannot set raw mode: %w", err))
	}

	if st, ok := c.tty.(iutf8Setter); ok && c.utf8 {
		if err := st.SetIUTF8(); err != nil {
			util.Logger.Debug("set iutf8", "error", err)
		}
	}

	if ck, ok := c.tty.(iutf8Checker); ok {
		if flag, err := ck.CheckIUTF8(); err == nil {
			util.Logger.Debug("terminal input mode", "iutf8", flag)
		}
	}
	return state, nil
}

func (c *Channel) restore(state util.Restorer) {
	if err := state.Restore(); err != nil {
		util.Logger.Warn("restore terminal mode", "error", err)
	}
}

func (c *Channel) read() (string, error) {
	if c.timeout > 0 {
		if d, ok := c.tty.(deadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
				util.Logger.Debug("read deadline not supported", "error", err)
			} else {
				defer d.SetReadDeadline(time.Time{})
			}
		}
	}

	if c.canceled.Load() {
		return "", report(c.reply, ErrNoResponse)
	}

	b := NewReplyBuffer(c.size)
	payload, err := c.readReply(b)
	if err != nil {
		b.release()
		return "", report(c.reply, err)
	}
	return payload, nil
}

func (c *Channel) readReply(b *ReplyBuffer) (string, error) {
	// one read for the two marker bytes
	n, err := c.tty.Read(b.buf[:minBufferSize])
	if n != minBufferSize {
		util.Logger.Debug("reply marker", "read", n, "error", err)
		return "", ErrNoResponse
	}
	b.buf = b.buf[:minBufferSize]
	first, second := b.buf[0], b.buf[1]

	switch {
	case first == markerByte:
		// the second byte is already payload
		b.buf[0] = second
		b.truncate(1)
		util.Logger.Debug("reply marker", "form", "8bit")
		if second == '\n' {
			return "", nil
		}
	case first == markerUTF8 && second == markerByte:
		b.truncate(0)
		util.Logger.Debug("reply marker", "form", "utf-8")
	default:
		util.Logger.Debug("reply marker", "unexpected", b.buf[:minBufferSize])
		return "", ErrNoResponse
	}

	for {
		start := b.Len()
		capacity := b.Cap()
		chunk, err := b.fill(c.tty)
		if b.Cap() != capacity {
			util.Logger.Debug("reply buffer grow", "from", capacity, "to", b.Cap())
		}
		util.Logger.Trace("reply chunk", "data", chunk)

		// bytes after the line feed are not part of this reply
		if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
			b.truncate(start + i)
			return string(b.Bytes()), nil
		}

		if err != nil || len(chunk) == 0 {
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrDeadlineExceeded) {
				util.Logger.Debug("reply read", "error", err)
			}
			return "", ErrMalformedResponse
		}
	}
}
