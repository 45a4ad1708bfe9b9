package encode

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ncruces/go-strftime"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

// DefaultPattern is used when no pattern is configured.
const DefaultPattern = "{d} {l} {t} - {m}{n}"

// PatternEncoder renders records through a format string.
//
// Supported formatters (long names in brackets):
//
//	{d} [date]        timestamp; {d(%H:%M:%S)} strftime format, {d(%T)(utc)} in UTC
//	{l} [level]       level name (INFO)
//	{m} [message]     message text
//	{n}               newline
//	{t} [target]      record target
//	{M} [module]      module path
//	{f} [file]        source file
//	{L} [line]        source line
//	{P} [pid]         process id
//	{X(key)} [mdc]    attribute value; {X(key)(default)} with fallback
//	{h(..)} [highlight] nested pattern styled by level
//
// Any formatter may carry a width spec: {l:<5} pads left-aligned to five
// characters, {m:>20.20} right-aligns and truncates to twenty.
// Literal braces are written as {{ and }}.
type PatternEncoder struct {
	pattern string
	pieces  []piece
}

// NewPatternEncoder compiles pattern into an encoder.
func NewPatternEncoder(pattern string) (*PatternEncoder, error) {
	pieces, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &PatternEncoder{pattern: pattern, pieces: pieces}, nil
}

// DefaultPatternEncoder returns an encoder for DefaultPattern.
func DefaultPatternEncoder() *PatternEncoder {
	enc, err := NewPatternEncoder(DefaultPattern)
	if err != nil {
		panic(err) // DefaultPattern is a constant known to parse
	}
	return enc
}

// Pattern returns the source pattern.
func (e *PatternEncoder) Pattern() string {
	return e.pattern
}

// Encode implements Encoder.
func (e *PatternEncoder) Encode(w Writer, r *record.Record) error {
	return renderPieces(w, r, e.pieces)
}

type formatter int

const (
	fmtLiteral formatter = iota
	fmtDate
	fmtLevel
	fmtMessage
	fmtNewline
	fmtTarget
	fmtModule
	fmtFile
	fmtLine
	fmtPID
	fmtMDC
	fmtHighlight
)

var formatterNames = map[string]formatter{
	"d": fmtDate, "date": fmtDate,
	"l": fmtLevel, "level": fmtLevel,
	"m": fmtMessage, "message": fmtMessage,
	"n": fmtNewline,
	"t": fmtTarget, "target": fmtTarget,
	"M": fmtModule, "module": fmtModule,
	"f": fmtFile, "file": fmtFile,
	"L": fmtLine, "line": fmtLine,
	"P": fmtPID, "pid": fmtPID,
	"X": fmtMDC, "mdc": fmtMDC,
	"h": fmtHighlight, "highlight": fmtHighlight,
}

// MaxWidth bounds both the minimum and maximum width of a formatter.
const MaxWidth = 4096

// widthSpec is the optional ":[<>]min.max" suffix of a formatter.
type widthSpec struct {
	rightAlign bool
	min        int
	max        int
}

type piece struct {
	kind  formatter
	text  string
	args  []string
	inner []piece
	width widthSpec
}

var pid = strconv.Itoa(os.Getpid())

func renderPieces(w Writer, r *record.Record, pieces []piece) error {
	for i := range pieces {
		if err := renderPiece(w, r, &pieces[i]); err != nil {
			return err
		}
	}
	return nil
}

func renderPiece(w Writer, r *record.Record, p *piece) error {
	switch p.kind {
	case fmtLiteral:
		_, err := io.WriteString(w, p.text)
		return err
	case fmtHighlight:
		if err := w.SetStyle(levelStyle(r.Level)); err != nil {
			return err
		}
		if err := renderPieces(w, r, p.inner); err != nil {
			return err
		}
		return w.SetStyle(Style{})
	}

	_, err := io.WriteString(w, p.width.apply(p.value(r)))
	return err
}

func (p *piece) value(r *record.Record) string {
	switch p.kind {
	case fmtDate:
		return formatDate(r.Time, p.arg(0), p.arg(1))
	case fmtLevel:
		return r.Level.String()
	case fmtMessage:
		return r.Message
	case fmtNewline:
		return "\n"
	case fmtTarget:
		return r.Target
	case fmtModule:
		return r.Module
	case fmtFile:
		return r.File
	case fmtLine:
		if r.Line == 0 {
			return ""
		}
		return strconv.Itoa(r.Line)
	case fmtPID:
		return pid
	case fmtMDC:
		if v, ok := r.Lookup(p.arg(0)); ok {
			return fmt.Sprint(v)
		}
		return p.arg(1)
	default:
		return ""
	}
}

func (p *piece) arg(i int) string {
	if i < len(p.args) {
		return p.args[i]
	}
	return ""
}

func formatDate(t time.Time, layout, zone string) string {
	if t.IsZero() {
		t = time.Now()
	}
	if zone == "utc" {
		t = t.UTC()
	} else {
		t = t.Local()
	}
	if layout == "" {
		return t.Format(time.RFC3339Nano)
	}
	return strftime.Format(layout, t)
}

func (ws widthSpec) apply(s string) string {
	n := utf8.RuneCountInString(s)
	if ws.max > 0 && n > ws.max {
		s = string([]rune(s)[:ws.max])
		n = ws.max
	}
	if n >= ws.min {
		return s
	}
	pad := strings.Repeat(" ", ws.min-n)
	if ws.rightAlign {
		return pad + s
	}
	return s + pad
}

// =============================================================================
// Parsing
// =============================================================================

type patternParser struct {
	src string
	pos int
}

func parsePattern(src string) ([]piece, error) {
	p := &patternParser{src: src}
	return p.parse()
}

func (p *patternParser) peek(offset int) byte {
	if i := p.pos + offset; i < len(p.src) {
		return p.src[i]
	}
	return 0
}

func (p *patternParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrInvalidPattern, fmt.Sprintf(format, args...), p.pos, p.src)
}

func (p *patternParser) parse() ([]piece, error) {
	var (
		out []piece
		lit strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, piece{kind: fmtLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; c {
		case '{':
			if p.peek(1) == '{' {
				lit.WriteByte('{')
				p.pos += 2
				continue
			}
			flush()
			pc, err := p.parseFormatter()
			if err != nil {
				return nil, err
			}
			out = append(out, pc)
		case '}':
			if p.peek(1) == '}' {
				lit.WriteByte('}')
				p.pos += 2
				continue
			}
			return nil, p.errorf("unmatched '}'")
		default:
			lit.WriteByte(c)
			p.pos++
		}
	}
	flush()
	return out, nil
}

// parseFormatter parses "{name(arg)...:spec}" starting at the opening brace.
func (p *patternParser) parseFormatter() (piece, error) {
	p.pos++ // '{'

	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]

	kind, ok := formatterNames[name]
	if !ok {
		return piece{}, p.errorf("unknown formatter %q", name)
	}
	pc := piece{kind: kind}

	for p.peek(0) == '(' {
		arg, err := p.parseArg()
		if err != nil {
			return piece{}, err
		}
		pc.args = append(pc.args, arg)
	}

	if p.peek(0) == ':' {
		p.pos++
		ws, err := p.parseWidth()
		if err != nil {
			return piece{}, err
		}
		pc.width = ws
	}

	if p.peek(0) != '}' {
		return piece{}, p.errorf("expected '}'")
	}
	p.pos++

	return pc, p.validate(&pc)
}

// parseArg reads one parenthesised argument, allowing nested parentheses.
func (p *patternParser) parseArg() (string, error) {
	p.pos++ // '('
	start := p.pos
	depth := 1
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				arg := p.src[start:p.pos]
				p.pos++
				return arg, nil
			}
		}
		p.pos++
	}
	return "", p.errorf("unterminated argument")
}

func (p *patternParser) parseWidth() (widthSpec, error) {
	var ws widthSpec
	switch p.peek(0) {
	case '<':
		p.pos++
	case '>':
		ws.rightAlign = true
		p.pos++
	}

	ws.min = p.parseNumber()
	if ws.min > MaxWidth {
		return ws, p.errorf("minimum width exceeds %d", MaxWidth)
	}
	if p.peek(0) == '.' {
		p.pos++
		start := p.pos
		ws.max = p.parseNumber()
		if p.pos == start {
			return ws, p.errorf("missing maximum width")
		}
		if ws.max > MaxWidth {
			return ws, p.errorf("maximum width exceeds %d", MaxWidth)
		}
	}
	return ws, nil
}

// parseNumber consumes a run of digits. The value saturates just above
// MaxWidth so long inputs cannot overflow.
func (p *patternParser) parseNumber() int {
	n := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		if n <= MaxWidth {
			n = n*10 + int(p.src[p.pos]-'0')
		}
		p.pos++
	}
	return n
}

func (p *patternParser) validate(pc *piece) error {
	switch pc.kind {
	case fmtHighlight:
		if len(pc.args) != 1 {
			return p.errorf("highlight takes exactly one argument")
		}
		inner, err := parsePattern(pc.args[0])
		if err != nil {
			return err
		}
		pc.inner = inner
	case fmtDate:
		if len(pc.args) > 2 {
			return p.errorf("date takes at most two arguments")
		}
		if zone := pc.arg(1); zone != "" && zone != "utc" && zone != "local" {
			return p.errorf("unknown timezone %q", zone)
		}
	case fmtMDC:
		if pc.arg(0) == "" || len(pc.args) > 2 {
			return p.errorf("mdc takes a key and an optional default")
		}
	default:
		if len(pc.args) > 0 {
			return p.errorf("formatter takes no arguments")
		}
	}
	return nil
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
