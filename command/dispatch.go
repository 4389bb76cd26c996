// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package command

import (
	"errors"
	"fmt"

	"github.com/ericwq/domterm/frontend"
	"github.com/ericwq/domterm/protocol"
	"github.com/ericwq/domterm/util"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Dispatch resolves Args[0] and runs the command in this process when its
// mask allows it.
func Dispatch(env *Env) error {
	if env.Registry == nil {
		env.Registry = Default()
	}

	rec, ok := env.Registry.Resolve(env.name())
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, env.name())
	}

	util.Logger.Debug("dispatch", "command", env.name(), "resolved", rec.Name, "mask", rec.Mask)
	if !rec.InClient() {
		return needServer(env)
	}
	return rec.Handler(env)
}

// Run dispatches the command, reports any error on the reply writer and
// returns the exit status.
func Run(env *Env) int {
	err := Dispatch(env)
	if err == nil {
		return ExitSuccess
	}

	// already written
	if protocol.IsReported(err) {
		return ExitFailure
	}

	var ue *UsageError
	switch {
	case errors.As(err, &ue):
		fmt.Fprintf(env.Reply, "%s\n", ue.Msg)
		if rec, ok := env.Registry.Resolve(ue.Command); ok {
			fmt.Fprintf(env.Reply, "%s\n", usageOf(rec))
		}
	case errors.Is(err, ErrNotDomTerm):
		fmt.Fprintf(env.Reply, "%s: %s\n", frontend.CommandClientName, err)
	case errors.Is(err, ErrNotFound):
		fmt.Fprintf(env.Reply, "%s\nTry '%s help' for the list of commands.\n", err, frontend.CommandClientName)
	default:
		fmt.Fprintf(env.Reply, "%s\n", err)
	}
	return ExitFailure
}
