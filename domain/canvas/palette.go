package canvas

import "unicode/utf16"

// Palette is the fixed set of participant colors, assigned at join time.
var Palette = []string{
	"#ef4444", // red
	"#3b82f6", // blue
	"#22c55e", // green
	"#f59e0b", // amber
	"#8b5cf6", // purple
	"#ec4899", // pink
	"#06b6d4", // cyan
	"#f97316", // orange
	"#14b8a6", // teal
	"#a855f7", // violet
	"#eab308", // yellow
	"#0ea5e9", // sky
}

// AssignColor picks a palette color for a new participant. The hash of
// displayName+connectionID decides when that color is free; otherwise the
// first unused color wins. With every color taken the hash color is reused.
func AssignColor(displayName, connectionID string, used map[string]bool) string {
	preferred := Palette[hashString(displayName+connectionID)%len(Palette)]
	if !used[preferred] {
		return preferred
	}
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	return preferred
}

// hashString is the 31-multiplier string hash with 32-bit wraparound over
// the UTF-16 code units of s, returned as its absolute value. Browser
// clients hash the same units, so both sides agree on the color.
func hashString(s string) int {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}
