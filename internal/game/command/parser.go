package command

import (
	"strings"
	"unicode"
)

// ParseResult holds the parsed command token and arguments from chat text.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command (preserving inner spacing).
	RawArgs string
}

// Parse splits chat text on its first whitespace run into a command token
// and an argument tail.
//
// Postcondition: Returns a ParseResult. If text is blank, Command is empty.
func Parse(text string) ParseResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return ParseResult{}
	}

	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return ParseResult{
			Command: strings.ToLower(text),
		}
	}

	cmd := strings.ToLower(text[:idx])
	rest := strings.TrimSpace(text[idx:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}
