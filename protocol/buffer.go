// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import "io"

const (
	DefaultBufferSize = 2048
	minBufferSize     = 2 // room for the reply marker
)

// ReplyBuffer accumulates one reply. len(buf) is the filled length and
// cap(buf) the capacity.
type ReplyBuffer struct {
	buf []byte
}

func NewReplyBuffer(size int) *ReplyBuffer {
	if size < minBufferSize {
		size = minBufferSize
	}
	return &ReplyBuffer{buf: make([]byte, 0, size)}
}

func (b *ReplyBuffer) Len() int      { return len(b.buf) }
func (b *ReplyBuffer) Cap() int      { return cap(b.buf) }
func (b *ReplyBuffer) Bytes() []byte { return b.buf }

// grow the capacity to capacity*3/2, keeping the filled bytes.
func (b *ReplyBuffer) grow() {
	size := cap(b.buf) * 3 / 2
	if size <= cap(b.buf) {
		size = cap(b.buf) + 1
	}
	buf := make([]byte, len(b.buf), size)
	copy(buf, b.buf)
	b.buf = buf
}

// fill performs one Read into the free space, growing first if the buffer
// is full. It returns the newly read bytes.
func (b *ReplyBuffer) fill(r io.Reader) ([]byte, error) {
	if len(b.buf) == cap(b.buf) {
		b.grow()
	}

	old := len(b.buf)
	n, err := r.Read(b.buf[old:cap(b.buf)])
	if n < 0 {
		n = 0
	}
	b.buf = b.buf[:old+n]
	return b.buf[old:], err
}

// truncate keeps the first n filled bytes.
func (b *ReplyBuffer) truncate(n int) {
	b.buf = b.buf[:n]
}

// release drops the storage, the buffer is empty afterwards.
func (b *ReplyBuffer) release() {
	b.buf = nil
}
