// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Opcode selects the remote action of an OSC request.
type Opcode int

const (
	OpHTML              Opcode = 72
	OpListStylesheets   Opcode = 90
	OpDisableStylesheet Opcode = 91
	OpEnableStylesheet  Opcode = 92
	OpPrintStylesheet   Opcode = 93
	OpAddStyle          Opcode = 94
	OpLoadStylesheet    Opcode = 95
)

const (
	ESC = "\x1B"
	BEL = "\x07"

	// DECSCNM, reverse video on/off.
	ReverseVideoOn  = ESC + "[?5h"
	ReverseVideoOff = ESC + "[?5l"
)

// Request is one out-of-band command: ESC ] opcode ; payload BEL
type Request struct {
	Op      Opcode
	Payload string
}

func NewRequest(op Opcode, payload string) Request {
	return Request{Op: op, Payload: payload}
}

func (r Request) String() string {
	var b strings.Builder
	b.Grow(len(r.Payload) + 8)
	fmt.Fprintf(&b, "%s]%d;", ESC, r.Op)
	b.WriteString(r.Payload)
	b.WriteString(BEL)
	return b.String()
}

// WriteStream writes one request whose payload is copied from r. The
// sequence is always terminated, even if reading r fails.
func WriteStream(w io.Writer, op Opcode, r io.Reader) error {
	if _, err := fmt.Fprintf(w, "%s]%d;", ESC, op); err != nil {
		return err
	}

	var cerr error
	if r != nil {
		_, cerr = io.Copy(w, r)
	}
	if _, err := io.WriteString(w, BEL); err != nil {
		return err
	}
	return cerr
}

// QuoteString returns s as a plain JSON string literal. Control characters,
// including ESC and BEL, are escaped so the result never terminates the OSC
// sequence early.
func QuoteString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// a string never fails to encode
	enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
