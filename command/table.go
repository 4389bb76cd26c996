// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package command

import (
	"fmt"
	"strings"

	"github.com/ericwq/domterm/frontend"
	"github.com/rivo/uniseg"
)

var defaultRegistry *Registry

func init() {
	var err error
	defaultRegistry, err = NewRegistry(commandTable()...)
	if err != nil {
		panic(err)
	}
}

// Default returns the built-in command table.
func Default() *Registry {
	return defaultRegistry
}

// an alias applies to the nearest full command above it.
func commandTable() []Record {
	return []Record{
		{
			Name: "is-domterm", Mask: InClient, Handler: isDomTermAction,
			Summary: "exit 0 when running under DomTerm, 1 otherwise",
		},
		{
			Name: "html", Mask: InClient, Handler: htmlAction, Args: "[html-text ...]",
			Summary: "insert each argument as HTML, or stdin when there is none",
		},
		// keep hcat right after html, an alias takes the nearest command above it
		{Name: "hcat", Mask: InClient | Alias},
		{
			Name: "add-style", Mask: InClient, Handler: addStyleAction, Args: "style-rule ...",
			Summary: "add CSS rules to the DomTerm window",
		},
		{
			Name: "enable-stylesheet", Mask: InClient, Handler: enableStylesheetAction, Args: "name-or-index",
			Summary: "enable a loaded stylesheet",
		},
		{
			Name: "disable-stylesheet", Mask: InClient, Handler: disableStylesheetAction, Args: "name-or-index",
			Summary: "disable a loaded stylesheet",
		},
		{
			Name: "load-stylesheet", Mask: InClient, Handler: loadStylesheetAction, Args: "name file|-",
			Summary: "load (or replace) the named stylesheet from a file",
		},
		{
			Name: "list-stylesheets", Mask: InClient, Handler: listStylesheetsAction,
			Summary: "list the stylesheets of the DomTerm window",
		},
		{
			Name: "print-stylesheet", Mask: InClient, Handler: printStylesheetAction, Args: "name-or-index",
			Summary: "print the rules of a stylesheet",
		},
		{
			Name: "attach", Mask: InServer, Handler: needServer, Args: "session",
			Summary: "attach to a running session",
		},
		{
			Name: "browse", Mask: InServer, Handler: needServer, Args: "url",
			Summary: "open a URL in a new DomTerm window",
		},
		{
			Name: "list", Mask: InClientIfNoServer | InServer, Handler: listAction,
			Summary: "list sessions",
		},
		{
			Name: "reverse-video", Mask: InClient, Handler: reverseVideoAction, Args: "[on|off]",
			Summary: "switch reverse video on or off",
		},
		{
			Name: "help", Mask: InClient, Handler: helpAction, Args: "[command]",
			Summary: "show the commands, or the usage of one command",
		},
		{
			Name: "new", Mask: InServer, Handler: needServer,
			Summary: "start a new session",
		},
	}
}

func synopsis(rec *Record) string {
	if rec.Args == "" {
		return rec.Name
	}
	return rec.Name + " " + rec.Args
}

// usage line of a command, for help and argument errors.
func usageOf(rec *Record) string {
	return fmt.Sprintf("Usage: %s %s", frontend.CommandClientName, synopsis(rec))
}

func helpAction(env *Env) error {
	reg := env.Registry
	if reg == nil {
		reg = Default()
	}

	if len(env.Args) > 2 {
		return &UsageError{Command: env.name(), Msg: "too many arguments to help"}
	}
	if len(env.Args) == 2 {
		return helpCommand(env, reg, env.Args[1])
	}

	records := reg.Records()
	lines := make([]string, len(records))
	width := 0
	for i, rec := range records {
		lines[i] = synopsis(rec)
		width = max(width, uniseg.StringWidth(lines[i]))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Commands:\n")
	for i, rec := range records {
		summary := rec.Summary
		switch {
		case rec.IsAlias():
			summary = "same as " + rec.Target().Name
		case !rec.InClient():
			summary += " (server)"
		}
		pad := strings.Repeat(" ", width-uniseg.StringWidth(lines[i]))
		fmt.Fprintf(&b, "  %s%s  %s\n", lines[i], pad, summary)
	}
	_, err := fmt.Fprint(env.Stdout, b.String())
	return err
}

func helpCommand(env *Env, reg *Registry, name string) error {
	rec, ok := reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	target := rec.Target()
	fmt.Fprintf(env.Stdout, "%s\n", usageOf(target))
	if rec.IsAlias() {
		fmt.Fprintf(env.Stdout, "  %s is an alias for %s\n", rec.Name, target.Name)
	}
	fmt.Fprintf(env.Stdout, "  %s\n", target.Summary)
	return nil
}
