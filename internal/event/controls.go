package event

import "regexp"

// InlineControl is a control code embedded in talk text, e.g. `\w5` (wait
// five frames) or `\_w[500]` (wait 500ms). Offset is the byte offset of the
// backslash in the text.
type InlineControl struct {
	Code   string
	Arg    string
	Offset int
}

var controlPattern = regexp.MustCompile(`\\(_?[A-Za-z]+)(?:\[([^\]]*)\]|(\d+))?`)

// ScanControls lists the control codes of text in order. It returns nil when
// there are none.
func ScanControls(text string) []InlineControl {
	matches := controlPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]InlineControl, 0, len(matches))
	for _, m := range matches {
		c := InlineControl{Code: text[m[2]:m[3]], Offset: m[0]}
		switch {
		case m[4] >= 0:
			c.Arg = text[m[4]:m[5]]
		case m[6] >= 0:
			c.Arg = text[m[6]:m[7]]
		}
		out = append(out, c)
	}
	return out
}
