package pipeline

import "strings"

// Repair applies the single bounded cleanup step to raw backend text: it
// strips a surrounding fenced code block marker, then returns the first
// balanced top-level object literal in what remains. It never edits the
// object itself. ok is false when no balanced object exists.
func Repair(raw string) (string, bool) {
	text := stripFence(strings.TrimSpace(raw))
	return firstObject(text)
}

func stripFence(text string) string {
	if strings.HasPrefix(text, "```") {
		// Drop the opening fence line, including an info string like ```json.
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
	}
	return text
}

// firstObject scans for the first '{' and returns the substring up to its
// matching '}', honouring string literals and escapes.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
