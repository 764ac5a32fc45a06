package pdf

import (
	"strconv"
	"strings"

	"github.com/ternarybob/marginalia/internal/interfaces"
)

// defaultLeading approximates the line spacing used by T* and ' when the
// stream never sets TL explicitly.
const defaultLeading = 1.2

// scanTextRuns walks one page's decoded content stream and recovers
// positioned text runs from the text-showing operators. It understands the
// common Tf/Tm/Td/TD/TL/T*/Tj/'/TJ subset, which covers the output of
// mainstream PDF producers; exotic streams degrade to fewer runs, never to
// an error. Graphics state beyond the text matrix is ignored - the runs only
// have to be good enough for highlight geometry, not for typesetting.
func scanTextRuns(content []byte) []interfaces.RawTextRun {
	var runs []interfaces.RawTextRun

	s := &streamScanner{data: content}

	fontSize := 1.0
	leading := 0.0
	textMatrix := identityMatrix()
	lineMatrix := identityMatrix()

	// Operand stack; text operators take at most 6 numeric operands
	var numbers []float64
	var lastString string
	var tjParts []string

	popNumbers := func(n int) []float64 {
		if len(numbers) < n {
			return nil
		}
		out := numbers[len(numbers)-n:]
		numbers = numbers[:len(numbers)-n]
		return out
	}

	emit := func(text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		runs = append(runs, interfaces.RawTextRun{
			Text: text,
			Transform: [6]float64{
				fontSize * textMatrix[0],
				textMatrix[1],
				textMatrix[2],
				fontSize * textMatrix[3],
				textMatrix[4],
				textMatrix[5],
			},
		})
	}

	nextLine := func(tx, ty float64) {
		lineMatrix = translate(lineMatrix, tx, ty)
		textMatrix = lineMatrix
	}

	for {
		token, kind, ok := s.next()
		if !ok {
			break
		}

		switch kind {
		case tokenNumber:
			if v, err := strconv.ParseFloat(token, 64); err == nil {
				numbers = append(numbers, v)
			}
		case tokenString:
			lastString = token
			tjParts = append(tjParts, token)
		case tokenName:
			// Font names and other name operands are irrelevant here
		case tokenArrayStart:
			tjParts = nil
		case tokenArrayEnd:
			// Keep tjParts for the TJ operator that follows
		case tokenOperator:
			switch token {
			case "BT":
				textMatrix = identityMatrix()
				lineMatrix = identityMatrix()
			case "ET":
				// Nothing to reset beyond what BT does
			case "Tf":
				if ops := popNumbers(1); ops != nil {
					fontSize = ops[0]
				}
			case "TL":
				if ops := popNumbers(1); ops != nil {
					leading = ops[0]
				}
			case "Tm":
				if ops := popNumbers(6); ops != nil {
					copy(textMatrix[:], ops)
					lineMatrix = textMatrix
				}
			case "Td":
				if ops := popNumbers(2); ops != nil {
					nextLine(ops[0], ops[1])
				}
			case "TD":
				if ops := popNumbers(2); ops != nil {
					leading = -ops[1]
					nextLine(ops[0], ops[1])
				}
			case "T*":
				nextLine(0, -currentLeading(leading, fontSize))
			case "Tj":
				emit(lastString)
			case "'":
				nextLine(0, -currentLeading(leading, fontSize))
				emit(lastString)
			case "TJ":
				emit(strings.Join(tjParts, ""))
				tjParts = nil
			}
			numbers = numbers[:0]
			lastString = ""
		}
	}

	return runs
}

func currentLeading(leading, fontSize float64) float64 {
	if leading != 0 {
		return leading
	}
	return fontSize * defaultLeading
}

func identityMatrix() [6]float64 {
	return [6]float64{1, 0, 0, 1, 0, 0}
}

// translate applies a tx/ty translation in text space
func translate(m [6]float64, tx, ty float64) [6]float64 {
	m[4] += tx*m[0] + ty*m[2]
	m[5] += tx*m[1] + ty*m[3]
	return m
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenString
	tokenName
	tokenOperator
	tokenArrayStart
	tokenArrayEnd
)

// streamScanner is a minimal tokenizer for decoded PDF content streams
type streamScanner struct {
	data []byte
	pos  int
}

func (s *streamScanner) next() (string, tokenKind, bool) {
	s.skipWhitespace()
	if s.pos >= len(s.data) {
		return "", 0, false
	}

	c := s.data[s.pos]
	switch {
	case c == '(':
		return s.readLiteralString(), tokenString, true
	case c == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] != '<':
		return s.readHexString(), tokenString, true
	case c == '/':
		return s.readName(), tokenName, true
	case c == '[':
		s.pos++
		return "[", tokenArrayStart, true
	case c == ']':
		s.pos++
		return "]", tokenArrayEnd, true
	case c == '<' || c == '>':
		// Dictionary delimiters; skip
		s.pos++
		return s.next()
	case c == '%':
		s.skipComment()
		return s.next()
	case isNumberStart(c):
		return s.readNumber(), tokenNumber, true
	default:
		return s.readOperator(), tokenOperator, true
	}
}

func (s *streamScanner) skipWhitespace() {
	for s.pos < len(s.data) && isWhitespace(s.data[s.pos]) {
		s.pos++
	}
}

func (s *streamScanner) skipComment() {
	for s.pos < len(s.data) && s.data[s.pos] != '\n' {
		s.pos++
	}
}

// readLiteralString reads a ()-delimited string, honoring escapes and
// balanced nested parentheses.
func (s *streamScanner) readLiteralString() string {
	var b strings.Builder
	s.pos++ // consume '('
	depth := 1

	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch c {
		case '\\':
			s.pos++
			if s.pos >= len(s.data) {
				return b.String()
			}
			b.WriteByte(unescape(s.data[s.pos]))
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				s.pos++
				return b.String()
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
		s.pos++
	}
	return b.String()
}

// readHexString reads a <>-delimited hex string, decoding byte pairs. Glyph
// IDs outside ASCII are dropped rather than mistranslated.
func (s *streamScanner) readHexString() string {
	var b strings.Builder
	s.pos++ // consume '<'

	var hexDigits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		c := s.data[s.pos]
		if isHexDigit(c) {
			hexDigits = append(hexDigits, c)
		}
		s.pos++
	}
	s.pos++ // consume '>'

	if len(hexDigits)%2 == 1 {
		hexDigits = append(hexDigits, '0')
	}
	for i := 0; i+1 < len(hexDigits); i += 2 {
		v, err := strconv.ParseUint(string(hexDigits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		if v >= 0x20 && v < 0x7f {
			b.WriteByte(byte(v))
		}
	}
	return b.String()
}

func (s *streamScanner) readName() string {
	start := s.pos
	s.pos++ // consume '/'
	for s.pos < len(s.data) && !isDelimiter(s.data[s.pos]) && !isWhitespace(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *streamScanner) readNumber() string {
	start := s.pos
	for s.pos < len(s.data) && (isNumberStart(s.data[s.pos]) || s.data[s.pos] == 'e' || s.data[s.pos] == 'E') {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *streamScanner) readOperator() string {
	start := s.pos
	for s.pos < len(s.data) && !isDelimiter(s.data[s.pos]) && !isWhitespace(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
