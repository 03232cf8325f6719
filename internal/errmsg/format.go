// Package errmsg builds the texts shown to the user when something fails.
package errmsg

import (
	"fmt"
	"strings"
)

// Op completes "Failed to ...".
type Op string

const (
	OpPlay        Op = "play"
	OpLoadLibrary Op = "load the library"
	OpLinkLastfm  Op = "link the Last.fm account"
)

const (
	// MultipleErrors replaces per-item messages once several items failed
	// in a row.
	MultipleErrors = "Playback failed for multiple items"
	MeteredStopped = "Streaming stopped: the network connection is metered"
	MeteredWarning = "Streaming over a metered network connection"
)

// Format returns "Failed to <op> '<subject>': <err>". The subject and the
// error are left out when empty.
func Format(op Op, subject string, err error) string {
	var b strings.Builder
	b.WriteString("Failed to ")
	b.WriteString(string(op))
	if subject != "" {
		fmt.Fprintf(&b, " '%s'", subject)
	}
	if err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}
