// Package gwtime reproduces the gateway's exact HTTP date formatting.
package gwtime

import (
	"strings"
	"time"
)

// HTTPNow formats the current instant the way the original gateway's
// http_nowtime() does: "%a, %d %b %Y %H:%M:%S %Z" with the zone forced to
// GMT. time.RFC1123 is close but renders "UTC", not "GMT".
func HTTPNow() string {
	return Format(time.Now())
}

func Format(t time.Time) string {
	s := t.UTC().Format(time.RFC1123)
	return strings.Replace(s, "UTC", "GMT", 1)
}
