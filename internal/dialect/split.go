package dialect

import "strings"

type splitOptions struct {
	backtickQuotes   bool // `identifier` quoting (MySQL)
	backslashEscapes bool // \' escapes inside string literals (MySQL)
	dollarQuotes     bool // $tag$ ... $tag$ bodies (PostgreSQL)
}

// splitStatements breaks body on semicolons that are outside of string
// literals, quoted identifiers, comments and dollar-quoted bodies.
// Statements consisting only of whitespace and comments are dropped.
func splitStatements(body string, opts splitOptions) []string {
	var (
		statements []string
		current    strings.Builder
		hasCode    bool
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if hasCode && stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
		hasCode = false
	}

	n := len(body)
	for i := 0; i < n; {
		c := body[i]

		switch {
		case c == '-' && i+1 < n && body[i+1] == '-':
			end := strings.IndexByte(body[i:], '\n')
			if end < 0 {
				end = n
			} else {
				end += i
			}
			current.WriteString(body[i:end])
			i = end
			continue

		case c == '/' && i+1 < n && body[i+1] == '*':
			end := strings.Index(body[i+2:], "*/")
			if end < 0 {
				end = n
			} else {
				end = i + 2 + end + 2
			}
			current.WriteString(body[i:end])
			i = end
			continue

		case c == '\'' || c == '"' || (c == '`' && opts.backtickQuotes):
			end := closingQuote(body, i, c, opts.backslashEscapes && c != '`')
			current.WriteString(body[i:end])
			hasCode = true
			i = end
			continue

		case c == '$' && opts.dollarQuotes:
			if tag, ok := dollarTag(body, i); ok {
				end := n
				if rest := strings.Index(body[i+len(tag):], tag); rest >= 0 {
					end = i + len(tag) + rest + len(tag)
				}
				current.WriteString(body[i:end])
				hasCode = true
				i = end
				continue
			}

		case c == ';':
			flush()
			i++
			continue
		}

		if !isSpace(c) {
			hasCode = true
		}
		current.WriteByte(c)
		i++
	}
	flush()

	return statements
}

// closingQuote returns the index just past the quote closing the literal
// that opens at start. Doubled quote characters are treated as escapes.
func closingQuote(s string, start int, quote byte, backslash bool) int {
	for j := start + 1; j < len(s); j++ {
		switch {
		case backslash && s[j] == '\\':
			j++
		case s[j] == quote:
			if j+1 < len(s) && s[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s)
}

// dollarTag reports the $tag$ opening at i, if any. Positional parameters
// such as $1 are not tags.
func dollarTag(s string, i int) (string, bool) {
	j := i + 1
	for j < len(s) && isIdentByte(s[j]) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return "", false
	}
	if j > i+1 && s[i+1] >= '0' && s[i+1] <= '9' {
		return "", false
	}
	return s[i : j+1], true
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
