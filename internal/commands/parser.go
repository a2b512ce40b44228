// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is a parsed command line.
type ParseResult struct {
	// Command is the matched command, nil if the name is unknown.
	Command *Command

	// Name is the command name as typed, e.g. "/model".
	Name string

	// Args are the arguments split on whitespace, honouring quotes.
	Args []string

	// RawArgs is everything after the name, trimmed.
	RawArgs string
}

// IsCommand reports whether input is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Parse splits input into a command name and arguments and looks the name
// up. The second result is false when input is not a slash command.
func (r *Registry) Parse(input string) (ParseResult, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ParseResult{}, false
	}

	var res ParseResult
	name, rest := input, ""
	if i := strings.IndexFunc(input, unicode.IsSpace); i >= 0 {
		name, rest = input[:i], input[i:]
	}
	res.Name = strings.ToLower(name)
	res.RawArgs = strings.TrimSpace(rest)
	res.Args = splitArgs(res.RawArgs)
	res.Command = r.Get(res.Name)
	return res, true
}

// splitArgs splits a line into tokens. Single and double quotes group
// words; a backslash escapes a quote or backslash inside quotes.
func splitArgs(input string) []string {
	var tokens []string
	var current strings.Builder
	var quote rune
	inToken := false

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case quote != 0 && c == '\\' && i+1 < len(runes) && strings.ContainsRune(`"'\`, runes[i+1]):
			current.WriteRune(runes[i+1])
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
			inToken = true
		case quote == 0 && unicode.IsSpace(c):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(c)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

// ValidateArgs checks required arguments and enum values.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}
	for i, def := range cmd.Args {
		if i >= len(args) {
			if def.Required {
				return &ArgError{Command: cmd.Name, Arg: def.Name, Message: "required argument missing", Expected: def.Description}
			}
			continue
		}
		if def.Type == ArgEnum && len(def.Values) > 0 && !containsFold(def.Values, args[i]) {
			return &ArgError{
				Command:  cmd.Name,
				Arg:      def.Name,
				Message:  "invalid value",
				Got:      args[i],
				Expected: strings.Join(def.Values, ", "),
			}
		}
	}
	return nil
}

func containsFold(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// ArgError is an argument validation failure.
type ArgError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ArgError) Error() string {
	msg := e.Command + ": " + e.Message
	if e.Arg != "" {
		msg += " for argument '" + e.Arg + "'"
	}
	if e.Got != "" {
		msg += " (got: " + e.Got + ")"
	}
	if e.Expected != "" {
		msg += " - expected: " + e.Expected
	}
	return msg
}
