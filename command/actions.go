// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ericwq/domterm/protocol"
	"github.com/ericwq/domterm/util"
)

var (
	errRejected   = errors.New("request rejected")
	errNotDomTerm = protocol.Reported(ErrNotDomTerm) // is-domterm fails quietly
)

func isDomTermAction(env *Env) error {
	if env.DomTerm {
		return nil
	}
	return errNotDomTerm
}

// html sends each argument as one HTML fragment, or stdin when there is none.
func htmlAction(env *Env) error {
	if err := env.checkDomTerm(); err != nil {
		return err
	}

	args := env.Args[1:]
	if len(args) == 0 {
		return protocol.WriteStream(env.Stdout, protocol.OpHTML, env.Stdin)
	}
	for _, arg := range args {
		if _, err := io.WriteString(env.Stdout, protocol.NewRequest(protocol.OpHTML, arg).String()); err != nil {
			return err
		}
	}
	return nil
}

func addStyleAction(env *Env) error {
	if err := env.checkDomTerm(); err != nil {
		return err
	}

	if env.TTY == nil {
		return ErrNoTerminal
	}
	for _, rule := range env.Args[1:] {
		quoted := protocol.QuoteString(rule)
		util.Logger.Debug("add-style", "rule", rule, "quoted", quoted)
		if _, err := io.WriteString(env.TTY, protocol.NewRequest(protocol.OpAddStyle, quoted).String()); err != nil {
			return err
		}
	}
	return nil
}

// a non-empty reply is the error text.
func replyStatus(env *Env, resp string) error {
	if resp == "" {
		return nil
	}
	fmt.Fprintf(env.Reply, "%s\n", resp)
	return protocol.Reported(errRejected)
}

func toggleStylesheet(env *Env, disable bool) error {
	if err := env.checkDomTerm(); err != nil {
		return err
	}
	if err := tooFewOrMany(env.name(), len(env.Args), 2, "(too %s arguments to disable/enable-stylesheet)"); err != nil {
		return err
	}

	op := protocol.OpEnableStylesheet
	if disable {
		op = protocol.OpDisableStylesheet
	}
	resp, err := env.request(protocol.NewRequest(op, env.Args[1]))
	if err != nil {
		return err
	}
	return replyStatus(env, resp)
}

func enableStylesheetAction(env *Env) error  { return toggleStylesheet(env, false) }
func disableStylesheetAction(env *Env) error { return toggleStylesheet(env, true) }

// load-stylesheet NAME FILE, FILE "-" is stdin.
func loadStylesheetAction(env *Env) error {
	if err := env.checkDomTerm(); err != nil {
		return err
	}
	if err := tooFewOrMany(env.name(), len(env.Args), 3, "too %s arguments to load-stylesheet"); err != nil {
		return err
	}

	name, fname := env.Args[1], env.Args[2]
	content, err := readInput(env, fname)
	if err != nil {
		util.Logger.Debug("load-stylesheet", "file", fname, "error", err)
		return fmt.Errorf("cannot read '%s'", fname)
	}

	payload := protocol.QuoteString(name) + "," + protocol.QuoteString(string(content))
	resp, err := env.request(protocol.NewRequest(protocol.OpLoadStylesheet, payload))
	if err != nil {
		return err
	}
	return replyStatus(env, resp)
}

func listStylesheetsAction(env *Env) error {
	if err := env.checkDomTerm(); err != nil {
		return err
	}

	resp, err := env.request(protocol.NewRequest(protocol.OpListStylesheets, ""))
	if err != nil {
		return err
	}
	for i, name := range protocol.ParseList(resp) {
		fmt.Fprintf(env.Stdout, "%d: %s\n", i, name)
	}
	return nil
}

func printStylesheetAction(env *Env) error {
	if err := env.checkDomTerm(); err != nil {
		return err
	}
	if err := tooFewOrMany(env.name(), len(env.Args), 2, "(too %s arguments to print-stylesheets)"); err != nil {
		return err
	}

	resp, err := env.request(protocol.NewRequest(protocol.OpPrintStylesheet, env.Args[1]))
	if err != nil {
		return err
	}
	lines, err := protocol.ParseLines(resp)
	if err != nil {
		// not a stylesheet, the reply explains why
		util.Logger.Debug("print-stylesheet", "reply", resp, "error", err)
		fmt.Fprintf(env.Reply, "%s\n", resp)
		return protocol.Reported(errRejected)
	}
	for _, line := range lines {
		fmt.Fprintf(env.Stdout, "%s\n", line)
	}
	return nil
}

func reverseVideoAction(env *Env) error {
	if err := env.checkDomTerm(); err != nil {
		return err
	}
	if len(env.Args) > 2 {
		return &UsageError{Command: env.name(), Msg: "too many arguments to reverse-video"}
	}

	opt := "on"
	if len(env.Args) == 2 {
		opt = env.Args[1]
	}

	var seq string
	switch strings.ToLower(opt) {
	case "on", "yes", "true":
		seq = protocol.ReverseVideoOn
	case "off", "no", "false":
		seq = protocol.ReverseVideoOff
	default:
		return &UsageError{Command: env.name(), Msg: "arguments to reverse-video is not on/off/yes/no/true/false"}
	}

	if env.TTY == nil {
		return ErrNoTerminal
	}
	_, err := io.WriteString(env.TTY, seq)
	return err
}

// list sessions, without a server there are none.
func listAction(env *Env) error {
	fmt.Fprintf(env.Stdout, "(no domterm sessions or server)\n")
	return nil
}

// needServer stands for the commands the server runs.
func needServer(env *Env) error {
	return fmt.Errorf("%s: %w", env.name(), ErrNeedServer)
}

func readInput(env *Env, fname string) ([]byte, error) {
	if fname == "-" {
		if env.Stdin == nil {
			return nil, errors.New("no stdin")
		}
		return io.ReadAll(env.Stdin)
	}
	return os.ReadFile(fname)
}
