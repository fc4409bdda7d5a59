package tools

import (
	"fmt"
	"strings"
)

// SplitArgs splits a tool directive into shell-style words. Rules:
//   - unquoted runs of whitespace separate words
//   - double quotes group a word; inside them, \" yields a literal quote and
//     \\ a literal backslash, any other backslash is kept verbatim
//   - single quotes group a word with no escape processing
//   - quotes may be embedded mid-word (a"b c"d is one word: "ab cd")
//
// An unterminated quote is an error. Splitting happens exactly once, at parse
// time; the raw line is preserved separately for integrity checks.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
	)

	runes := []rune(line)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '\'':
			inWord = true
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == '\'' {
					closed = true
					i++
					break
				}
				current.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated single quote")
			}
		case r == '"':
			inWord = true
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == '"' {
					closed = true
					i++
					break
				}
				if runes[i] == '\\' && i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
					current.WriteRune(runes[i+1])
					i += 2
					continue
				}
				current.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated double quote")
			}
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
			i++
		default:
			inWord = true
			current.WriteRune(r)
			i++
		}
	}

	if inWord {
		args = append(args, current.String())
	}

	return args, nil
}

// JoinShell renders args as one sh command string, quoting each word so the
// shell sees exactly the words SplitArgs produced. Without this, quoting
// stripped at parse time would re-expose metacharacters to the shell and the
// executed command would diverge from the directive the operator confirmed.
func JoinShell(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if isShellSafe(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func isShellSafe(arg string) bool {
	for _, r := range arg {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_@%+=:,./-", r):
		default:
			return false
		}
	}
	return true
}
