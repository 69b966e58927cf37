// Package fsutils maps conversation keys to file and directory names.
package fsutils

import (
	"net/url"
	"strings"
)

// KeyFilename encodes key as a single path element. The encoding is
// reversible, so distinct keys never share a file: only letters, digits and
// "-_.~%+" appear in the result, and a leading dot is escaped so the result
// is never "." or "..".
func KeyFilename(key string) string {
	name := url.QueryEscape(key)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name
}

// KeyFromFilename reverses KeyFilename. Names it did not produce are
// returned unchanged.
func KeyFromFilename(name string) string {
	key, err := url.QueryUnescape(name)
	if err != nil {
		return name
	}
	return key
}
