package spreadsheet

import (
	"strings"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// NormalizeColor converts "#RRGGBB", "RRGGBB" or "AARRGGBB" into upper-case
// ARGB. Six digits get an opaque "FF" alpha. An empty input returns "".
func NormalizeColor(color string) (string, error) {
	if color == "" {
		return "", nil
	}
	c := strings.TrimLeft(color, "#")
	switch len(c) {
	case 6:
		c = "FF" + c
	case 8:
	default:
		return "", invalidColor(c)
	}
	for _, r := range c {
		if !isHex(r) {
			return "", invalidColor(c)
		}
	}
	return strings.ToUpper(c), nil
}

// fillColor converts an ARGB value into the "#RRGGBB" form excelize fills
// accept. Alpha is not representable there and is dropped.
func fillColor(argb string) string {
	return "#" + argb[2:]
}

func invalidColor(c string) error {
	return mcperr.Newf(mcperr.InvalidColor, "Invalid color format: %s. Use #RRGGBB or AARRGGBB", c)
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
