// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package command

import (
	"fmt"
	"strings"
)

// Mask tells where a command may run.
type Mask uint8

const (
	InClient           Mask = 1 << iota // run by the client process
	InServer                            // run by the server
	InClientIfNoServer                  // run by the client when no server is running
	Alias                               // alias of the nearest preceding full command
)

func (m Mask) String() string {
	var names []string
	if m&InClient != 0 {
		names = append(names, "client")
	}
	if m&InServer != 0 {
		names = append(names, "server")
	}
	if m&InClientIfNoServer != 0 {
		names = append(names, "client-if-no-server")
	}
	if m&Alias != 0 {
		names = append(names, "alias")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Handler runs one command.
type Handler func(env *Env) error

// Record is one entry of the command table. An alias record has no handler.
type Record struct {
	Name    string
	Mask    Mask
	Handler Handler
	Args    string // argument synopsis, for help
	Summary string

	target *Record // set for alias records
}

func (r *Record) IsAlias() bool { return r.Mask&Alias != 0 }

// Target returns the record an alias stands for, or r itself.
func (r *Record) Target() *Record {
	if r.target != nil {
		return r.target
	}
	return r
}

// runnable in the client process when no server is running.
func (r *Record) InClient() bool {
	return r.Mask&(InClient|InClientIfNoServer) != 0
}

// TableError reports a defect in the command table.
type TableError struct {
	Index  int
	Name   string
	Reason string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("command table entry %d %q: %s", e.Index, e.Name, e.Reason)
}

// Registry is the immutable command table. It is safe for concurrent use.
type Registry struct {
	records []*Record
	index   map[string]*Record
}

// NewRegistry validates records in registration order and links every
// alias to the nearest preceding non-alias record.
func NewRegistry(records ...Record) (*Registry, error) {
	r := &Registry{
		records: make([]*Record, len(records)),
		index:   make(map[string]*Record, len(records)),
	}

	for i := range records {
		rec := records[i]
		rec.target = nil
		r.records[i] = &rec

		switch {
		case rec.Name == "":
			return nil, &TableError{i, rec.Name, "empty name"}
		case r.index[rec.Name] != nil:
			return nil, &TableError{i, rec.Name, "duplicate name"}
		case rec.IsAlias() && rec.Handler != nil:
			return nil, &TableError{i, rec.Name, "alias with a handler"}
		case !rec.IsAlias() && rec.Handler == nil:
			return nil, &TableError{i, rec.Name, "neither handler nor alias"}
		}

		if rec.IsAlias() {
			j := i - 1
			for j >= 0 && r.records[j].IsAlias() {
				j--
			}
			if j < 0 {
				return nil, &TableError{i, rec.Name, "alias without a preceding command"}
			}
			r.records[i].target = r.records[j]
		}
		r.index[rec.Name] = r.records[i]
	}
	return r, nil
}

// Resolve finds the record that runs for name. Names are case-sensitive.
// For an alias the aliased record is returned.
func (r *Registry) Resolve(name string) (*Record, bool) {
	rec, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return rec.Target(), true
}

// Lookup finds the record registered under name without following aliases.
func (r *Registry) Lookup(name string) (*Record, bool) {
	rec, ok := r.index[name]
	return rec, ok
}

// Records returns the table in registration order.
func (r *Registry) Records() []*Record {
	return append([]*Record(nil), r.records...)
}
