// Package shellparse decomposes shell command lines without invoking a shell.
// It understands just enough syntax to answer which simple commands a line
// contains, how they are joined, and which directory each one runs in: quoting,
// the &&/||/;/| operators, and cd scope. Anything beyond that degrades to
// "no match" rather than an error, so unusual input flows through the guard
// as ordinary, unguarded text.
package shellparse

import "strings"

// Op identifies the shell operator that joins a segment to the one before it.
type Op int

const (
	// OpNone marks the first segment of a command line.
	OpNone Op = iota
	// OpAnd is &&.
	OpAnd
	// OpOr is ||.
	OpOr
	// OpSeq is ;.
	OpSeq
	// OpPipe is |.
	OpPipe
)

// String returns the shell spelling of the operator.
func (o Op) String() string {
	switch o {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpSeq:
		return ";"
	case OpPipe:
		return "|"
	default:
		return ""
	}
}

// Segment is one simple command within a compound command line.
type Segment struct {
	// Op is the operator that preceded this segment (OpNone for the first).
	Op Op
	// Name is the command name, with quotes stripped.
	Name string
	// Args are the tokens after the name, in order, with quotes stripped.
	Args []string
	// Flags maps every dash-prefixed token to its inline value
	// ("--flag=value") or "" when the flag carried none. Flags that consume
	// a separate value token are resolved by the extraction helpers, not
	// here, because value consumption depends on the command.
	Flags map[string]string
}

// HasFlag reports whether the segment carries the given flag token.
func (s Segment) HasFlag(flag string) bool {
	_, ok := s.Flags[flag]
	return ok
}

// ParsedCommand is the structured decomposition of a raw command line.
// It is immutable once produced: Parse on the same input always yields a
// structurally identical value.
type ParsedCommand struct {
	Raw      string
	Segments []Segment
}

// Parse decomposes a raw command line into operator-joined segments.
// It never fails: unterminated quotes and other malformed constructs are
// tolerated, yielding whatever segments could be recognized.
func Parse(raw string) ParsedCommand {
	parsed := ParsedCommand{Raw: raw}
	tokens := tokenize(raw)

	op := OpNone
	var current []string
	flush := func(next Op) {
		if len(current) > 0 {
			parsed.Segments = append(parsed.Segments, newSegment(op, current))
			current = nil
		}
		op = next
	}

	for _, tok := range tokens {
		if tok.op != OpNone {
			flush(tok.op)
			continue
		}
		current = append(current, tok.text)
	}
	flush(OpNone)

	return parsed
}

func newSegment(op Op, tokens []string) Segment {
	seg := Segment{
		Op:    op,
		Name:  tokens[0],
		Flags: make(map[string]string),
	}
	if len(tokens) > 1 {
		seg.Args = append(seg.Args, tokens[1:]...)
	}
	for _, arg := range seg.Args {
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}
		if eq := strings.IndexByte(arg, '='); eq > 0 {
			seg.Flags[arg[:eq]] = arg[eq+1:]
		} else {
			seg.Flags[arg] = ""
		}
	}
	return seg
}

// token is either a word (text set) or an operator (op set).
type token struct {
	text string
	op   Op
}

type quoteState int

const (
	quoteNone quoteState = iota
	quoteSingle
	quoteDouble
)

// tokenize splits raw into words and unquoted operators. Operators glued
// directly to adjacent words ("a&&b") are recognized. Quotes are stripped
// from words; backslash escapes are honored inside double quotes only.
func tokenize(raw string) []token {
	var tokens []token
	var word strings.Builder
	wordStarted := false

	flushWord := func() {
		if wordStarted {
			tokens = append(tokens, token{text: word.String()})
			word.Reset()
			wordStarted = false
		}
	}

	state := quoteNone
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case quoteSingle:
			if ch == '\'' {
				state = quoteNone
				continue
			}
			word.WriteRune(ch)
			continue
		case quoteDouble:
			if ch == '\\' && i+1 < len(runes) {
				word.WriteRune(runes[i+1])
				i++
				continue
			}
			if ch == '"' {
				state = quoteNone
				continue
			}
			word.WriteRune(ch)
			continue
		}

		switch ch {
		case '\'':
			state = quoteSingle
			wordStarted = true
		case '"':
			state = quoteDouble
			wordStarted = true
		case ' ', '\t', '\n':
			flushWord()
		case '&':
			if i+1 < len(runes) && runes[i+1] == '&' {
				flushWord()
				tokens = append(tokens, token{op: OpAnd})
				i++
			} else {
				// A lone & (background job) is not an operator this
				// parser models; keep it as word text.
				word.WriteRune(ch)
				wordStarted = true
			}
		case '|':
			flushWord()
			if i+1 < len(runes) && runes[i+1] == '|' {
				tokens = append(tokens, token{op: OpOr})
				i++
			} else {
				tokens = append(tokens, token{op: OpPipe})
			}
		case ';':
			flushWord()
			tokens = append(tokens, token{op: OpSeq})
		default:
			word.WriteRune(ch)
			wordStarted = true
		}
	}
	flushWord()

	return tokens
}
