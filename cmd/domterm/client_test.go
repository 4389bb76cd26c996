// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/ericwq/domterm/command"
	"github.com/ericwq/domterm/util"
	"golang.org/x/sync/errgroup"
)

func TestPrintColors(t *testing.T) {
	tc := []struct {
		label  string
		term   string
		expect []string
	}{
		{"lookup terminfo failed", "NotExist", []string{"Dynamic load terminfo failed."}},
		{"TERM is empty", "", []string{"The TERM is empty string."}},
		{"TERM doesn't exit", "-remove", []string{"The TERM doesn't exist."}},
		{"normal found", "xterm-256color", []string{"xterm-256color", "256"}},
	}

	for _, v := range tc {
		t.Run(v.label, func(t *testing.T) {
			// intercept stdout
			saveStdout := os.Stdout
			r, w, _ := os.Pipe()
			os.Stdout = w

			t.Setenv("TERM", v.term)
			if v.term == "-remove" {
				os.Unsetenv("TERM")
			}

			printColors()

			// restore stdout
			w.Close()
			b, _ := io.ReadAll(r)
			os.Stdout = saveStdout
			r.Close()

			result := string(b)
			for i := range v.expect {
				if !strings.Contains(result, v.expect[i]) {
					t.Errorf("#test %s expect %q, got %q\n", v.label, v.expect, result)
				}
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	tc := []struct {
		label string
		args  []string
		check func(c *Config) bool
	}{
		{"version", []string{"-v"}, func(c *Config) bool { return c.version }},
		{"long colors", []string{"--colors"}, func(c *Config) bool { return c.colors }},
		{"command after flags", []string{"--verbose", "2", "--force", "reverse-video", "off"}, func(c *Config) bool {
			return c.verbose == 2 && c.force && len(c.args) == 2 && c.args[0] == "reverse-video"
		}},
		{"timeout and tty", []string{"--timeout", "500ms", "--tty", "/dev/pts/9", "list-stylesheets"}, func(c *Config) bool {
			return c.timeout == 500*time.Millisecond && c.tty == "/dev/pts/9" && c.set["tty"] && c.set["timeout"]
		}},
		{"command flags are arguments", []string{"html", "--force"}, func(c *Config) bool {
			return !c.force && len(c.args) == 2 && c.args[1] == "--force"
		}},
		{"unset flags", []string{"help"}, func(c *Config) bool { return len(c.set) == 0 }},
	}

	for _, v := range tc {
		conf, output, err := parseFlags("prog", v.args)
		if err != nil {
			t.Errorf("#test %s parseFlags error %s, output %q\n", v.label, err, output)
			continue
		}
		if !v.check(conf) {
			t.Errorf("#test %s got %+v\n", v.label, conf)
		}
	}
}

func TestParseFlagsFail(t *testing.T) {
	tc := []struct {
		label  string
		args   []string
		expect string
	}{
		{"bad duration", []string{"--timeout", "soon", "help"}, "invalid value"},
		{"bad verbose", []string{"--verbose", "x"}, "invalid value"},
		{"unknown flag", []string{"--port", "1"}, "flag provided but not defined"},
	}

	for _, v := range tc {
		conf, output, err := parseFlags("prog", v.args)
		if err == nil || conf != nil {
			t.Errorf("#test %s expect error, got %+v\n", v.label, conf)
			continue
		}
		if !strings.Contains(output, v.expect) {
			t.Errorf("#test %s expect %q, got %q\n", v.label, v.expect, output)
		}
	}

	if _, _, err := parseFlags("prog", []string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("#test -h expect ErrHelp, got %v\n", err)
	}
}

func TestBuildConfig(t *testing.T) {
	tc := []struct {
		label string
		conf  Config
		hint  string
		ok    bool
	}{
		{"version only", Config{version: true}, "", true},
		{"colors only", Config{colors: true}, "", true},
		{"no command", Config{}, "command is mandatory.", false},
		{"negative verbose", Config{verbose: -1, args: []string{"help"}}, "verbose level can't be negative.", false},
		{"negative timeout", Config{timeout: -time.Second, args: []string{"help"}}, "timeout can't be negative.", false},
		{"command", Config{args: []string{"help"}}, "", true},
	}

	for _, v := range tc {
		hint, ok := v.conf.buildConfig()
		if hint != v.hint || ok != v.ok {
			t.Errorf("#test %s expect %q %t, got %q %t\n", v.label, v.hint, v.ok, hint, ok)
		}
	}
}

func TestSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	content := "tty = \"/dev/pts/1\"\nreply-timeout = \"1s\"\nverbose = 1\nbuffer-size = 16\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("#test WriteFile %s\n", err)
	}

	tc := []struct {
		label   string
		args    []string
		env     map[string]string
		tty     string
		timeout time.Duration
		verbose int
	}{
		{"file only", []string{"--config", path, "help"}, nil, "/dev/pts/1", time.Second, 1},
		{"environment over file", []string{"--config", path, "help"},
			map[string]string{"DOMTERM_TTY": "/dev/pts/2", "DOMTERM_REPLY_TIMEOUT": "2s"}, "/dev/pts/2", 2 * time.Second, 1},
		{"flags over environment", []string{"--config", path, "--tty", "/dev/pts/3", "--timeout", "3s", "--verbose", "0", "help"},
			map[string]string{"DOMTERM_TTY": "/dev/pts/2", "DOMTERM_REPLY_TIMEOUT": "2s"}, "/dev/pts/3", 3 * time.Second, 0},
	}

	for _, v := range tc {
		conf, _, err := parseFlags("prog", v.args)
		if err != nil {
			t.Fatalf("#test %s parseFlags %s\n", v.label, err)
		}
		s, err := conf.settings(func(key string) string { return v.env[key] })
		if err != nil {
			t.Errorf("#test %s settings %s\n", v.label, err)
			continue
		}
		if s.TTY != v.tty || s.ReplyTimeout.Duration != v.timeout || s.Verbose != v.verbose || s.BufferSize != 16 {
			t.Errorf("#test %s got %+v\n", v.label, s)
		}
	}

	// a broken file stops the command
	bad := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(bad, []byte("buffer-size = 1\n"), 0600)
	conf, _, _ := parseFlags("prog", []string{"--config", bad, "help"})
	if _, err := conf.settings(func(string) string { return "" }); err == nil || !strings.Contains(err.Error(), "buffer-size") {
		t.Errorf("#test invalid buffer size expect error, got %v\n", err)
	}
}

func runArgs(t *testing.T, env map[string]string, stdin string, args ...string) (int, string, string) {
	t.Helper()
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, args...)
	conf, _, err := parseFlags("prog", args)
	if err != nil {
		t.Fatalf("#test parseFlags %s\n", err)
	}

	var stdout, stderr bytes.Buffer
	status := run(conf, func(key string) string { return env[key] }, strings.NewReader(stdin), &stdout, &stderr)
	return status, stdout.String(), stderr.String()
}

func TestRunWithoutTerminal(t *testing.T) {
	inDomTerm := map[string]string{"DOMTERM": "version=3.0;tty=/dev/pts/5"}
	tc := []struct {
		label  string
		env    map[string]string
		stdin  string
		args   []string
		status int
		stdout string
		stderr string
	}{
		{"is-domterm outside", nil, "", []string{"--tty", "/no/such/tty", "is-domterm"}, command.ExitFailure, "", ""},
		{"is-domterm inside", inDomTerm, "", []string{"--tty", "/no/such/tty", "is-domterm"}, command.ExitSuccess, "", ""},
		{"is-domterm forced", nil, "", []string{"--tty", "/no/such/tty", "--force", "is-domterm"}, command.ExitSuccess, "", ""},
		{"html", inDomTerm, "", []string{"--tty", "/no/such/tty", "html", "<b>hi</b>"}, command.ExitSuccess, "\x1b]72;<b>hi</b>\x07", ""},
		{"hcat stdin", inDomTerm, "<i>x</i>", []string{"--tty", "/no/such/tty", "hcat"}, command.ExitSuccess, "\x1b]72;<i>x</i>\x07", ""},
		{"html outside", nil, "", []string{"--tty", "/no/such/tty", "html", "x"}, command.ExitFailure, "", "domterm: not running under DomTerm\n"},
		{"no terminal", inDomTerm, "", []string{"--tty", "/no/such/tty", "list-stylesheets"}, command.ExitFailure, "", "no controlling terminal\n"},
		{"server command", nil, "", []string{"--tty", "/no/such/tty", "browse", "http://x"}, command.ExitFailure, "", "browse: requires a running domterm server\n"},
		{"bad env timeout", map[string]string{"DOMTERM_REPLY_TIMEOUT": "x"}, "", []string{"help"}, command.ExitFailure, "", "domterm: DOMTERM_REPLY_TIMEOUT"},
	}

	for _, v := range tc {
		status, stdout, stderr := runArgs(t, v.env, v.stdin, v.args...)
		if status != v.status {
			t.Errorf("#test %s expect status %d, got %d\n", v.label, v.status, status)
		}
		if stdout != v.stdout {
			t.Errorf("#test %s expect stdout %q, got %q\n", v.label, v.stdout, stdout)
		}
		if !strings.HasPrefix(stderr, v.stderr) || (v.stderr == "" && stderr != "") {
			t.Errorf("#test %s expect stderr %q, got %q\n", v.label, v.stderr, stderr)
		}
	}
}

func TestRunLogFile(t *testing.T) {
	defer util.Logger.SetVerbose(0)
	logFile := filepath.Join(t.TempDir(), "domterm.log")
	status, _, _ := runArgs(t, nil, "", "--tty", "/no/such/tty", "--verbose", "1", "--log", logFile, "list")
	if status != command.ExitSuccess {
		t.Errorf("#test list expect success, got %d\n", status)
	}

	b, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("#test read log %s\n", err)
	}
	if !strings.Contains(string(b), "dispatch") {
		t.Errorf("#test log file expect dispatch record, got %q\n", b)
	}

	status, _, _ = runArgs(t, nil, "", "--tty", "/no/such/tty", "--log", "/no/such/dir/x.log", "list")
	if status != command.ExitFailure {
		t.Errorf("#test bad log file expect failure, got %d\n", status)
	}
}

func TestRunOverPty(t *testing.T) {
	ptmx, tts, err := pty.Open()
	if err != nil {
		t.Fatalf("#test pty Open %s\n", err)
	}
	defer ptmx.Close()
	ttyName := tts.Name()
	defer tts.Close()

	var eg errgroup.Group
	eg.Go(func() error {
		req, err := bufio.NewReader(ptmx).ReadString('\a')
		if err != nil {
			return err
		}
		if req != "\x1b]90;\x07" {
			return errors.New("unexpected request " + req)
		}
		_, err = io.WriteString(ptmx, "\xc2\x9da\tb\tc\n")
		return err
	})

	env := map[string]string{"DOMTERM": "version=3.0;tty=" + ttyName}
	status, stdout, stderr := runArgs(t, env, "", "--tty", ttyName, "--timeout", "500ms", "list-stylesheets")
	if err := eg.Wait(); err != nil {
		t.Errorf("#test far end %s\n", err)
	}

	if status != command.ExitSuccess || stdout != "0: a\n1: b\n2: c\n" || stderr != "" {
		t.Errorf("#test list-stylesheets got %d %q %q\n", status, stdout, stderr)
	}
}

func TestRunSignalCancels(t *testing.T) {
	ptmx, tts, err := pty.Open()
	if err != nil {
		t.Fatalf("#test pty Open %s\n", err)
	}
	defer ptmx.Close()
	ttyName := tts.Name()
	defer tts.Close()

	var eg errgroup.Group
	eg.Go(func() error {
		// no answer, interrupt the client instead
		if _, err := bufio.NewReader(ptmx).ReadString('\a'); err != nil {
			return err
		}
		return syscall.Kill(os.Getpid(), syscall.SIGTERM)
	})

	status, stdout, stderr := runArgs(t, nil, "", "--tty", ttyName, "--force", "print-stylesheet", "0")
	if err := eg.Wait(); err != nil {
		t.Errorf("#test far end %s\n", err)
	}

	if status != command.ExitFailure || stdout != "" || stderr != "(no response received)\n" {
		t.Errorf("#test canceled print-stylesheet got %d %q %q\n", status, stdout, stderr)
	}
}

func TestRunNotTerminal(t *testing.T) {
	plain := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(plain, nil, 0600); err != nil {
		t.Fatalf("#test WriteFile %s\n", err)
	}
	inDomTerm := map[string]string{"DOMTERM": "version=3.0;tty=" + plain}

	tc := []struct {
		label  string
		args   []string
		status int
		stderr string
	}{
		{"is-domterm", []string{"--tty", plain, "is-domterm"}, command.ExitFailure, ""},
		{"list stylesheets", []string{"--tty", plain, "list-stylesheets"}, command.ExitFailure, "domterm: not running under DomTerm\n"},
		{"forced list stylesheets", []string{"--tty", plain, "--force", "list-stylesheets"}, command.ExitFailure, "no controlling terminal\n"},
		{"forced reverse video", []string{"--tty", plain, "--force", "reverse-video"}, command.ExitFailure, "no controlling terminal\n"},
	}

	for _, v := range tc {
		status, stdout, stderr := runArgs(t, inDomTerm, "", v.args...)
		if status != v.status || stdout != "" || stderr != v.stderr {
			t.Errorf("#test %s expect %d %q, got %d %q %q\n", v.label, v.status, v.stderr, status, stdout, stderr)
		}
	}

	// nothing reaches a device that is not a terminal
	if b, _ := os.ReadFile(plain); len(b) != 0 {
		t.Errorf("#test expect %s untouched, got %q\n", plain, b)
	}
}
