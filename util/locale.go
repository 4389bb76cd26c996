// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"strings"
)

type localeVar struct {
	name  string
	value string
}

func (lv localeVar) String() string {
	if lv.name == "" {
		return "[no charset variables]"
	}
	return lv.name + "=" + lv.value
}

// GetCtype returns the environment variable that decides LC_CTYPE,
// following the POSIX precedence LC_ALL, LC_CTYPE, LANG.
func GetCtype() localeVar {
	if all := os.Getenv("LC_ALL"); all != "" {
		return localeVar{"LC_ALL", all}
	} else if ctype := os.Getenv("LC_CTYPE"); ctype != "" {
		return localeVar{"LC_CTYPE", ctype}
	} else if lang := os.Getenv("LANG"); lang != "" {
		return localeVar{"LANG", lang}
	}

	return localeVar{"", ""}
}

// LocaleCharset extracts the codeset part of a locale name such as
// "en_US.UTF-8@euro". "C" and "POSIX" are US-ASCII.
func LocaleCharset() string {
	value := GetCtype().value
	switch value {
	case "", "C", "POSIX":
		return "US-ASCII"
	}

	if idx := strings.IndexByte(value, '@'); idx >= 0 {
		value = value[:idx]
	}
	idx := strings.IndexByte(value, '.')
	if idx < 0 {
		return ""
	}
	return value[idx+1:]
}

// return true if current locale charset is utf-8, otherwise false.
func IsUtf8Locale() bool {
	switch strings.ToLower(LocaleCharset()) {
	case "utf-8", "utf8":
		return true
	}
	return false
}
