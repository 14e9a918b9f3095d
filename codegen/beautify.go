package codegen

import "strings"

const indentUnit = "  "

// Beautify reindents generated JavaScript by bracket depth so the artifacts
// left in a kept sandbox are readable. It is purely cosmetic; execution does
// not depend on it.
func Beautify(src string) string {
	var out []string
	depth := 0
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out = append(out, "")
			continue
		}

		lineDepth := depth
		if n := leadingClosers(trimmed); n > 0 {
			lineDepth -= n
			if lineDepth < 0 {
				lineDepth = 0
			}
		}
		out = append(out, strings.Repeat(indentUnit, lineDepth)+trimmed)

		depth += nestingDelta(trimmed)
		if depth < 0 {
			depth = 0
		}
	}
	return strings.Join(out, "\n")
}

func leadingClosers(line string) int {
	n := 0
	for _, r := range line {
		if r == '}' || r == ')' || r == ']' {
			n++
			continue
		}
		break
	}
	return n
}

// nestingDelta counts bracket balance outside string and comment context.
func nestingDelta(line string) int {
	delta := 0
	var quote rune
	escaped := false
	for i, r := range line {
		if escaped {
			escaped = false
			continue
		}
		if quote != 0 {
			switch r {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			quote = r
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return delta
			}
		case '{', '(', '[':
			delta++
		case '}', ')', ']':
			delta--
		}
	}
	return delta
}
