// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericwq/domterm/command"
	"github.com/ericwq/domterm/config"
	"github.com/ericwq/domterm/frontend"
	"github.com/ericwq/domterm/protocol"
	"github.com/ericwq/domterm/util"
	"github.com/ericwq/terminfo"
	_ "github.com/ericwq/terminfo/base"
	"github.com/ericwq/terminfo/dynamic"
)

var usage = `Usage:
  ` + frontend.CommandClientName + ` [-v] [-h] [-c]
  ` + frontend.CommandClientName + ` [--verbose N] [--tty PATH] [--timeout DURATION] [--config FILE] [--log FILE] [--force] command [argument ...]
Options:
  -h, --help     print this message
  -v, --version  print version information
  -c, --colors   print the number of colors of terminal
      --verbose  verbose output level, 1 debug, 2 trace
      --tty      controlling terminal device (default /dev/tty)
      --timeout  give up waiting for a reply after this long, e.g. 500ms
      --config   configuration file (default $XDG_CONFIG_HOME/domterm/client.toml)
      --log      write log output to this file
      --force    skip the DomTerm check
Run '` + frontend.CommandClientName + ` help' for the list of commands.
`

func printColors() {
	value, ok := os.LookupEnv("TERM")
	if !ok {
		fmt.Println("The TERM doesn't exist.")
		return
	}
	if value == "" {
		fmt.Println("The TERM is empty string.")
		return
	}

	ti, err := terminfo.LookupTerminfo(value)
	if err == nil {
		fmt.Printf("%s %d\n", value, ti.Colors)
		return
	}
	ti, _, err = dynamic.LoadTerminfo(value)
	if err == nil {
		fmt.Printf("%s %d (dynamic)\n", value, ti.Colors)
		return
	}
	fmt.Printf("Dynamic load terminfo failed. %s Install infocmp (ncurses package) first.\n", err)
}

type Config struct {
	version    bool
	colors     bool
	verbose    int
	tty        string
	timeout    time.Duration
	configFile string
	logFile    string
	force      bool
	args       []string        // command and its arguments
	set        map[string]bool // flags present on the command line
}

func parseFlags(progname string, args []string) (conf *Config, output string, err error) {
	flagSet := flag.NewFlagSet(progname, flag.ContinueOnError)
	var buf bytes.Buffer
	flagSet.SetOutput(&buf)

	conf = &Config{set: make(map[string]bool)}

	flagSet.BoolVar(&conf.version, "version", false, "print version information")
	flagSet.BoolVar(&conf.version, "v", false, "print version information")

	flagSet.BoolVar(&conf.colors, "colors", false, "terminal number of colors")
	flagSet.BoolVar(&conf.colors, "c", false, "terminal number of colors")

	flagSet.IntVar(&conf.verbose, "verbose", 0, "verbose output level")
	flagSet.StringVar(&conf.tty, "tty", "", "controlling terminal device")
	flagSet.DurationVar(&conf.timeout, "timeout", 0, "reply timeout")
	flagSet.StringVar(&conf.configFile, "config", "", "configuration file")
	flagSet.StringVar(&conf.logFile, "log", "", "log file")
	flagSet.BoolVar(&conf.force, "force", false, "skip the DomTerm check")

	err = flagSet.Parse(args)
	if err != nil {
		return nil, buf.String(), err
	}

	flagSet.Visit(func(f *flag.Flag) { conf.set[f.Name] = true })
	conf.args = flagSet.Args()
	return conf, buf.String(), nil
}

func (c *Config) buildConfig() (string, bool) {
	if c.version || c.colors {
		return "", true
	}
	if len(c.args) == 0 {
		return "command is mandatory.", false
	}
	if c.verbose < 0 {
		return "verbose level can't be negative.", false
	}
	if c.timeout < 0 {
		return "timeout can't be negative.", false
	}
	return "", true
}

// settings merges the configuration file, the environment and the command
// line, in that order.
func (c *Config) settings(getenv func(string) string) (*config.Config, error) {
	path := c.configFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			util.Logger.Debug("no default config path", "error", err)
		}
	}

	s, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnvOverrides(getenv); err != nil {
		return nil, err
	}

	if c.set["tty"] {
		s.TTY = c.tty
	}
	if c.set["timeout"] {
		s.ReplyTimeout.Duration = c.timeout
	}
	if c.set["verbose"] {
		s.Verbose = c.verbose
	}
	if c.set["log"] {
		s.LogFile = c.logFile
	}
	if c.set["force"] {
		s.Force = c.force
	}
	return s, s.Validate()
}

// run the command in conf.args and return the exit status.
func run(conf *Config, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer) int {
	s, err := conf.settings(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %s\n", frontend.CommandClientName, err)
		return command.ExitFailure
	}

	util.Logger.SetVerbose(s.Verbose)
	if s.LogFile != "" {
		f, err := util.Logger.SetOutputFile(s.LogFile)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %s\n", frontend.CommandClientName, err)
			return command.ExitFailure
		}
		defer func() {
			util.Logger.SetOutput(os.Stderr)
			f.Close()
		}()
	}

	utf8 := util.IsUtf8Locale()
	util.Logger.Debug("locale", "ctype", util.GetCtype(), "charset", util.LocaleCharset(), "utf8", utf8)

	env := &command.Env{
		Args:   conf.args,
		Stdin:  stdin,
		Stdout: stdout,
		Reply:  stderr,
	}

	ttyName := s.TTY
	terminal := true
	tty, err := util.OpenTTY(s.TTY)
	switch {
	case err != nil:
		// commands that never talk to the terminal still work
		util.Logger.Debug("open terminal", "tty", s.TTY, "error", err)
		ttyName = ""
	case !tty.IsTerminal():
		util.Logger.Debug("not a terminal", "tty", s.TTY)
		tty.Close()
		terminal = false
	default:
		defer tty.Close()
		ch := protocol.NewChannel(tty, stderr)
		ch.SetTimeout(s.ReplyTimeout.Duration)
		ch.SetBufferSize(s.BufferSize)
		ch.SetUTF8(utf8)
		env.TTY = tty
		env.Channel = ch

		// a signal during an exchange cancels it, so the terminal mode is restored
		var sigs frontend.Signals
		stop := sigs.Watch(func(sig os.Signal) {
			if !ch.Cancel() {
				resend(sig)
			}
		}, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}

	env.DomTerm = s.Force || (terminal && command.ProbeDomTerm(getenv, ttyName))
	util.Logger.Debug("start", "args", conf.args, "tty", ttyName, "domterm", env.DomTerm)

	return command.Run(env)
}

// resend delivers sig again with its default action.
func resend(sig os.Signal) {
	util.Logger.Debug("no pending exchange", "signal", sig)
	signal.Reset(sig)
	if ss, ok := sig.(syscall.Signal); ok {
		syscall.Kill(os.Getpid(), ss)
	}
}

func main() {
	conf, _, err := parseFlags(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		frontend.PrintUsage("", usage)
		return
	} else if err != nil {
		frontend.PrintUsage(err.Error(), usage)
		os.Exit(command.ExitFailure)
	} else if hint, ok := conf.buildConfig(); !ok {
		frontend.PrintUsage(hint, usage)
		os.Exit(command.ExitFailure)
	}

	if conf.version {
		frontend.PrintVersion()
		return
	}

	if conf.colors {
		printColors()
		return
	}

	os.Exit(run(conf, os.Getenv, os.Stdin, os.Stdout, os.Stderr))
}
