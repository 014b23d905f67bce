package errors

import (
	"fmt"
	"strings"
)

// ExtractSnippet renders the lines of src around pos with line numbers and a
// caret under the offending column.
func ExtractSnippet(src string, pos Position, contextLines int) string {
	if !pos.IsValid() {
		return ""
	}
	lines := strings.Split(src, "\n")
	errorLine := pos.Line - 1
	if errorLine >= len(lines) {
		return ""
	}
	start := max(errorLine-contextLines, 0)
	end := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", end+1))
	for i := start; i <= end; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%*d | %s\n", prefix, width, i+1, lines[i]))
		if i == errorLine {
			sb.WriteString(fmt.Sprintf("  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", max(pos.Column-1, 0))))
		}
	}
	return sb.String()
}
