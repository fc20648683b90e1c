// Package pretty formats values for log output.
package pretty

import "fmt"

// Abbrev returns s shortened for logging. With no ranges, anything longer
// than 12 bytes is cut to 12. With one range, it's used as both the maximum
// length and the cut length. With two, they are the maximum length and the
// cut length respectively.
func Abbrev(s string, ranges ...int) Abbreviated {
	maxLen, cutTo := 12, 12
	if len(ranges) >= 2 {
		maxLen, cutTo = ranges[0], ranges[1]
	} else if len(ranges) == 1 {
		maxLen, cutTo = ranges[0], ranges[0]
	}
	if cutTo > maxLen {
		cutTo = maxLen
	}
	return Abbreviated{
		Original: s,
		MaxLen:   maxLen,
		CutTo:    cutTo,
	}
}

// Abbreviated is a string that is cut short when formatted.
type Abbreviated struct {
	Original string
	MaxLen   int
	CutTo    int
}

func (s Abbreviated) String() string {
	if len(s.Original) > s.MaxLen {
		return fmt.Sprintf("%s… (%d bytes)", s.Original[:s.CutTo], len(s.Original))
	}
	return s.Original
}
