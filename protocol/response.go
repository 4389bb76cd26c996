// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/json"
	"strings"
)

// ParseList splits a tab separated reply. An empty reply has no fields and a
// trailing tab does not add an empty field.
func ParseList(resp string) []string {
	if resp == "" {
		return nil
	}
	fields := strings.Split(resp, "\t")
	if fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// ParseLines decodes a reply holding a JSON array of strings.
func ParseLines(resp string) ([]string, error) {
	var lines []string
	if err := json.Unmarshal([]byte(resp), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}
