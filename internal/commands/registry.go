// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBusy is returned for commands that cannot run while a reply is
// being generated.
var ErrBusy = errors.New("a reply is being generated; stop it first")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is a slash command.
type Command struct {
	// Name is the primary name, e.g. "/help".
	Name string

	// Aliases are alternative names, e.g. "/h".
	Aliases []string

	Description string

	// Usage shows argument syntax, e.g. "/switch <n|id>".
	Usage string

	Args []ArgDef

	// Category groups commands in help.
	Category string

	// IdleOnly commands are refused while generating.
	IdleOnly bool

	Handler func(env *Env, p ParseResult) (Result, error)
}

// ArgDef describes one argument.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for ArgEnum.
	Values []string
}

// ArgType selects argument completion.
type ArgType int

const (
	ArgString       ArgType = iota // free-form
	ArgModel                       // configured model id
	ArgConversation                // list index or conversation id
	ArgSetting                     // settings key
	ArgEnum                        // one of Values
	ArgFile                        // file path
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds the commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get returns the command with a name or alias, or nil.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	return r.aliases[name]
}

// All returns the commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// categoryOrder fixes the order of help sections.
var categoryOrder = []string{"Conversation", "History", "Model", "Settings", "General"}

// ByCategory returns commands grouped by category, each group sorted.
func (r *Registry) ByCategory() map[string][]*Command {
	out := make(map[string][]*Command)
	for _, cmd := range r.All() {
		cat := cmd.Category
		if cat == "" {
			cat = "General"
		}
		out[cat] = append(out[cat], cmd)
	}
	return out
}

// Execute parses and runs input.
func (r *Registry) Execute(env *Env, input string) (Result, error) {
	p, ok := r.Parse(input)
	if !ok {
		return Result{}, fmt.Errorf("not a command: %q", input)
	}
	if p.Command == nil {
		return Result{}, fmt.Errorf("unknown command: %s (try /help)", p.Name)
	}
	if p.Command.IdleOnly && env.Busy {
		return Result{}, ErrBusy
	}
	if err := ValidateArgs(p.Command, p.Args); err != nil {
		return Result{}, err
	}
	if p.Command.Name == "/help" {
		return r.help(p)
	}
	return p.Command.Handler(env, p)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show commands",
		Usage:       "/help [command]",
		Args:        []ArgDef{{Name: "command", Description: "command to describe"}},
		Category:    "General",
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Leave the chat",
		Category:    "General",
		Handler:     handleQuit,
	})

	// Conversation
	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new conversation",
		Category:    "Conversation",
		IdleOnly:    true,
		Handler:     handleNew,
	})
	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear the messages of this conversation",
		Category:    "Conversation",
		IdleOnly:    true,
		Handler:     handleClear,
	})
	r.Register(&Command{
		Name:        "/copy",
		Description: "Copy the last reply to the clipboard",
		Category:    "Conversation",
		Handler:     handleCopy,
	})
	r.Register(&Command{
		Name:        "/export",
		Description: "Export this conversation, or all history as JSON",
		Usage:       "/export [md|html|json]",
		Args:        []ArgDef{{Name: "format", Type: ArgEnum, Values: []string{"md", "html", "json"}, Description: "export format"}},
		Category:    "Conversation",
		Handler:     handleExport,
	})

	// History
	r.Register(&Command{
		Name:        "/list",
		Aliases:     []string{"/ls", "/history"},
		Description: "List conversations",
		Category:    "History",
		Handler:     handleList,
	})
	r.Register(&Command{
		Name:        "/switch",
		Aliases:     []string{"/open"},
		Description: "Switch to a conversation",
		Usage:       "/switch <n|id>",
		Args:        []ArgDef{{Name: "conversation", Required: true, Type: ArgConversation, Description: "list number or id"}},
		Category:    "History",
		IdleOnly:    true,
		Handler:     handleSwitch,
	})
	r.Register(&Command{
		Name:        "/delete",
		Aliases:     []string{"/rm"},
		Description: "Delete a conversation (default: this one)",
		Usage:       "/delete [n|id]",
		Args:        []ArgDef{{Name: "conversation", Type: ArgConversation, Description: "list number or id"}},
		Category:    "History",
		IdleOnly:    true,
		Handler:     handleDelete,
	})
	r.Register(&Command{
		Name:        "/search",
		Aliases:     []string{"/find"},
		Description: "Search conversations",
		Usage:       "/search <text>",
		Args:        []ArgDef{{Name: "text", Required: true, Description: "text to find"}},
		Category:    "History",
		Handler:     handleSearch,
	})
	r.Register(&Command{
		Name:        "/import",
		Description: "Replace history with an exported JSON file",
		Usage:       "/import <file>",
		Args:        []ArgDef{{Name: "file", Required: true, Type: ArgFile, Description: "exported history file"}},
		Category:    "History",
		IdleOnly:    true,
		Handler:     handleImport,
	})

	// Model
	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Show or switch the model",
		Usage:       "/model [id]",
		Args:        []ArgDef{{Name: "id", Type: ArgModel, Description: "configured model id"}},
		Category:    "Model",
		IdleOnly:    true,
		Handler:     handleModel,
	})
	r.Register(&Command{
		Name:        "/models",
		Description: "List configured models, or the endpoint's models",
		Usage:       "/models [remote]",
		Args:        []ArgDef{{Name: "source", Type: ArgEnum, Values: []string{"remote"}, Description: "remote"}},
		Category:    "Model",
		Handler:     handleModels,
	})
	r.Register(&Command{
		Name:        "/web",
		Aliases:     []string{"/websearch"},
		Description: "Toggle web search",
		Usage:       "/web [on|off]",
		Args:        []ArgDef{{Name: "state", Type: ArgEnum, Values: []string{"on", "off"}, Description: "on or off"}},
		Category:    "Model",
		IdleOnly:    true,
		Handler:     handleWeb,
	})

	// Settings
	r.Register(&Command{
		Name:        "/system",
		Description: "Show or set the system prompt",
		Usage:       "/system [text|default|none]",
		Category:    "Settings",
		IdleOnly:    true,
		Handler:     handleSystem,
	})
	r.Register(&Command{
		Name:        "/set",
		Description: "Change a setting",
		Usage:       "/set <key> <value>",
		Args: []ArgDef{
			{Name: "key", Required: true, Type: ArgSetting, Description: "setting name"},
			{Name: "value", Required: true, Description: "new value"},
		},
		Category: "Settings",
		IdleOnly: true,
		Handler:  handleSet,
	})
	r.Register(&Command{
		Name:        "/settings",
		Aliases:     []string{"/config"},
		Description: "Show settings",
		Category:    "Settings",
		Handler:     handleSettings,
	})
	r.Register(&Command{
		Name:        "/validate",
		Description: "Check the API key against the endpoint",
		Category:    "Settings",
		Handler:     handleValidate,
	})
}

// help renders the command list or one command's usage.
func (r *Registry) help(p ParseResult) (Result, error) {
	if len(p.Args) > 0 {
		name := p.Args[0]
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		cmd := r.Get(name)
		if cmd == nil {
			return Result{}, fmt.Errorf("unknown command: %s", name)
		}
		var sb strings.Builder
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&sb, "%s\n  %s", usage, cmd.Description)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&sb, "\n  aliases: %s", strings.Join(cmd.Aliases, ", "))
		}
		return Result{Output: sb.String()}, nil
	}

	groups := r.ByCategory()
	var sb strings.Builder
	for _, cat := range categoryOrder {
		cmds := groups[cat]
		if len(cmds) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(cat + "\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&sb, "  %-24s %s\n", usage, cmd.Description)
		}
	}
	return Result{Output: strings.TrimRight(sb.String(), "\n")}, nil
}
