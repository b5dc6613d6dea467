// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package logs

import (
	"hash/fnv"
	"time"
)

// Event is one line of the merged feed.
type Event struct {
	Container string
	// Color is an ANSI 256 color code from Palette.
	Color     string
	Timestamp time.Time
	Message   string
	// Synthetic events are generated locally, not read from a stream.
	Synthetic bool
}

// Palette holds the container colors, chosen to read on dark and light
// backgrounds.
var Palette = []string{"39", "82", "214", "170", "45", "203", "141", "118", "208", "81"}

// Color picks a stable palette entry for a container name.
func Color(container string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(container))
	return Palette[int(h.Sum32()%uint32(len(Palette)))]
}

// Format renders an event as plain text.
func Format(ev Event) string {
	if ev.Synthetic && ev.Container == "" {
		return ev.Message
	}
	return ev.Timestamp.UTC().Format(time.RFC3339) + " [" + ev.Container + "] " + ev.Message
}
