package script

import "strings"

// scanState tracks where the separator scanner currently is.
type scanState int

const (
	stateCode scanState = iota
	stateString
	stateLineComment
	stateBlockComment
)

// normalizeSeparators rewrites every `;` found in code position into a line
// break. Semicolons inside quoted strings, template interpolations' strings,
// comments and heredocs are left untouched. Byte offsets are preserved.
func normalizeSeparators(src string) string {
	if !strings.Contains(src, ";") {
		return src
	}

	out := []byte(src)
	state := stateCode
	// interp holds the brace depth of each open `${` inside a string.
	var interp []int

	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case stateCode:
			switch {
			case c == ';':
				out[i] = '\n'
			case c == '"':
				state = stateString
			case c == '#':
				state = stateLineComment
			case c == '/' && i+1 < len(out) && out[i+1] == '/':
				state = stateLineComment
				i++
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				state = stateBlockComment
				i++
			case c == '<' && i+1 < len(out) && out[i+1] == '<':
				i = skipHeredoc(out, i)
			case c == '{' && len(interp) > 0:
				interp[len(interp)-1]++
			case c == '}' && len(interp) > 0:
				if interp[len(interp)-1] == 0 {
					interp = interp[:len(interp)-1]
					state = stateString
				} else {
					interp[len(interp)-1]--
				}
			}
		case stateString:
			switch {
			case c == '\\':
				i++
			case c == '"':
				state = stateCode
			case (c == '$' || c == '%') && i+2 < len(out) && out[i+1] == c && out[i+2] == '{':
				// `$${` and `%%{` are literal text, not template sequences.
				i += 2
			case (c == '$' || c == '%') && i+1 < len(out) && out[i+1] == '{':
				interp = append(interp, 0)
				state = stateCode
				i++
			}
		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				state = stateCode
				i++
			}
		}
	}
	return string(out)
}

// skipHeredoc returns the index of the last byte of the heredoc starting at
// start (which points at `<<`). If no heredoc marker follows, start+1 is
// returned so scanning resumes after the operator.
func skipHeredoc(src []byte, start int) int {
	i := start + 2
	if i < len(src) && src[i] == '-' {
		i++
	}
	markerStart := i
	for i < len(src) && isIdentByte(src[i]) {
		i++
	}
	marker := string(src[markerStart:i])
	if i < len(src) && src[i] == '\r' {
		i++
	}
	if marker == "" || i >= len(src) || src[i] != '\n' {
		return start + 1
	}

	lineStart := i + 1
	for lineStart < len(src) {
		lineEnd := lineStart
		for lineEnd < len(src) && src[lineEnd] != '\n' {
			lineEnd++
		}
		if strings.TrimSpace(strings.TrimSuffix(string(src[lineStart:lineEnd]), "\r")) == marker {
			return lineEnd - 1
		}
		lineStart = lineEnd + 1
	}
	return len(src) - 1
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
