package telegram

import (
	"strings"
	"unicode/utf8"
)

const codeFence = "```"

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes user-provided text for the legacy Markdown mode.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// Truncate shortens text to maxLen runes, marking the cut with an ellipsis.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}

// SplitMessage splits a message into chunks of at most maxLen characters,
// trying to split at newlines when possible. A code block cut in two is
// closed at the end of one chunk and reopened at the start of the next.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	// Room for a closing fence plus newline
	limit := maxLen - len(codeFence) - 1

	var parts []string
	reopen := false
	for text != "" {
		if reopen {
			text = codeFence + "\n" + text
		}
		runes := []rune(text)
		if len(runes) <= maxLen {
			parts = append(parts, text)
			break
		}

		splitAt := limit
		chunk := string(runes[:limit])
		if lastNewline := strings.LastIndex(chunk, "\n"); lastNewline > len(chunk)/2 {
			splitAt = utf8.RuneCountInString(chunk[:lastNewline+1])
		}

		part := string(runes[:splitAt])
		reopen = strings.Count(part, codeFence)%2 != 0
		if reopen {
			part = strings.TrimRight(part, "\n") + "\n" + codeFence
		}
		parts = append(parts, part)
		text = string(runes[splitAt:])
	}

	return parts
}

// FixMarkdown closes unbalanced code blocks and inline code spans.
func FixMarkdown(text string) string {
	if strings.Count(text, codeFence)%2 != 0 {
		text += "\n" + codeFence
	}
	return fixInlineCode(text)
}

func fixInlineCode(text string) string {
	var builder strings.Builder
	inCodeBlock := false
	inlineOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && string(runes[i:i+3]) == codeFence {
			if inlineOpen {
				builder.WriteRune('`')
				inlineOpen = false
			}
			inCodeBlock = !inCodeBlock
			builder.WriteString(codeFence)
			i += 2
			continue
		}

		if !inCodeBlock && runes[i] == '`' {
			inlineOpen = !inlineOpen
		}

		builder.WriteRune(runes[i])
	}

	if inlineOpen {
		builder.WriteRune('`')
	}

	return builder.String()
}
