// Package callbacks decodes inline button data.
package callbacks

import (
	"strconv"
	"strings"
)

// Sep separates the button key from its payload.
const Sep = "|"

// Parse splits telebot's "\f<key>|<payload>" button data.
func Parse(data string) (string, string) {
	data = strings.TrimPrefix(data, "\f")
	data = strings.TrimPrefix(data, `\f`)
	key, payload, _ := strings.Cut(data, Sep)
	return strings.TrimSpace(key), strings.TrimSpace(payload)
}

// Int64 parses a numeric payload.
func Int64(payload string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
}
