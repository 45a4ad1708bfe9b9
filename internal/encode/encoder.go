package encode

import (
	"io"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// Color is a terminal colour used in a Style.
type Color int

// Colours supported by styling directives. ColorDefault leaves the
// destination's colour unchanged.
const (
	ColorDefault Color = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

// Style is a styling directive. The zero value resets all styling.
type Style struct {
	Text       Color
	Background Color
	Intense    bool
}

// Writer is the sink an Encoder writes into.
type Writer interface {
	io.Writer

	// SetStyle applies a styling directive to subsequent writes.
	SetStyle(style Style) error
}

// Encoder serialises a record into a Writer.
//
// Implementations must be safe for concurrent use; appenders share a
// single encoder across all logging goroutines.
type Encoder interface {
	Encode(w Writer, r *record.Record) error
}

// levelStyle returns the highlight style for a level.
func levelStyle(l record.Level) Style {
	switch l {
	case record.LevelError:
		return Style{Text: ColorRed, Intense: true}
	case record.LevelWarn:
		return Style{Text: ColorYellow}
	case record.LevelInfo:
		return Style{Text: ColorGreen}
	case record.LevelDebug:
		return Style{Text: ColorCyan}
	default:
		return Style{Text: ColorBlue}
	}
}
