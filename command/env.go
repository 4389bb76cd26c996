// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package command

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ericwq/domterm/protocol"
	"github.com/ericwq/domterm/util"
)

var (
	ErrNotFound   = errors.New("unknown command")
	ErrNeedServer = errors.New("requires a running domterm server")
	ErrNotDomTerm = errors.New("not running under DomTerm")
	ErrNoTerminal = errors.New("no controlling terminal")
)

// UsageError is a wrong argument list; the request is never sent.
type UsageError struct {
	Command string
	Msg     string
}

func (e *UsageError) Error() string { return e.Msg }

// tooFewOrMany checks the argument count; format takes "few" or "many".
func tooFewOrMany(name string, got, want int, format string) error {
	if got == want {
		return nil
	}
	kind := "many"
	if got < want {
		kind = "few"
	}
	return &UsageError{Command: name, Msg: fmt.Sprintf(format, kind)}
}

// Env is everything a command handler may touch.
type Env struct {
	Args     []string // Args[0] is the command name as typed
	Stdin    io.Reader
	Stdout   io.Writer
	Reply    io.Writer         // status and error text, distinct from the terminal
	TTY      io.Writer         // output side of the controlling terminal
	Channel  *protocol.Channel // nil without a controlling terminal
	DomTerm  bool              // running under DomTerm, or the check is skipped
	Registry *Registry
}

func (e *Env) name() string {
	if len(e.Args) == 0 {
		return ""
	}
	return e.Args[0]
}

func (e *Env) checkDomTerm() error {
	if !e.DomTerm {
		return ErrNotDomTerm
	}
	return nil
}

// request sends req to the terminal and waits for the reply.
func (e *Env) request(req protocol.Request) (string, error) {
	if e.Channel == nil || e.TTY == nil {
		return "", ErrNoTerminal
	}
	return e.Channel.Exchange(e.TTY, req)
}

// ProbeDomTerm reports whether the process runs inside DomTerm. DomTerm
// exports DOMTERM as a ';' separated list, e.g. "version=3.0;tty=/dev/pts/3".
// When the list names a tty and ttyName is a concrete device, both must match.
func ProbeDomTerm(getenv func(string) string, ttyName string) bool {
	value := getenv("DOMTERM")
	if value == "" {
		return false
	}

	for _, field := range strings.Split(value, ";") {
		tty, ok := strings.CutPrefix(field, "tty=")
		if !ok {
			continue
		}
		if ttyName == "" || ttyName == util.DefaultTTY {
			break
		}
		return tty == ttyName
	}
	return true
}
