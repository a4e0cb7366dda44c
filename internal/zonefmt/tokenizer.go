// Package zonefmt parses and renders the two text forms this codec
// round-trips: RFC 1035 zone files, and the multi-section DiG-style
// output Record.String produces.
package zonefmt

import (
	"bufio"
	"io"
	"strings"
)

// stripComment removes a trailing ';' comment, ignoring one that falls
// inside a double-quoted string.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			if i == 0 || line[i-1] != '\\' {
				inQuote = !inQuote
			}
		case ';':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// fields splits a comment-stripped line on whitespace, keeping a
// double-quoted run (including its quotes) as a single token.
func fields(line string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			cur.WriteByte(c)
			if i == 0 || line[i-1] != '\\' {
				inQuote = !inQuote
			}
		case !inQuote && (c == ' ' || c == '\t'):
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

// logicalLines reads r and joins parenthesis-continued records into a
// single comment-stripped logical line apiece, the way BIND's zone
// reader treats a record spanning multiple physical lines.
func logicalLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var out []string
	var cur strings.Builder
	open := false

	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if strings.TrimSpace(line) == "" && !open {
			continue
		}

		if open {
			cur.WriteByte(' ')
		} else {
			cur.Reset()
		}
		cur.WriteString(line)

		accumulated := cur.String()
		depth := strings.Count(accumulated, "(") - strings.Count(accumulated, ")")
		if depth > 0 {
			open = true
			continue
		}
		open = false

		text := strings.NewReplacer("(", " ", ")", " ").Replace(cur.String())
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
