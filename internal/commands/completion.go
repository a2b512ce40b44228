// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/jeranaias/rigchat/internal/config"
)

// Complete returns the completed lines for a partial command line. Only
// the command name and the first argument are completed; models holds
// the configured model ids for ArgModel.
func (r *Registry) Complete(input string, models []string) []string {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	name, rest, hasArgs := strings.Cut(input, " ")
	if !hasArgs {
		var out []string
		for _, cmd := range r.All() {
			if strings.HasPrefix(cmd.Name, strings.ToLower(name)) {
				out = append(out, cmd.Name)
			}
		}
		return out
	}

	cmd := r.Get(name)
	if cmd == nil || len(cmd.Args) == 0 || strings.Contains(strings.TrimLeft(rest, " "), " ") {
		return nil
	}

	var values []string
	switch def := cmd.Args[0]; def.Type {
	case ArgEnum:
		values = def.Values
	case ArgModel:
		values = models
	case ArgSetting:
		values = config.SettingKeys
	case ArgString, ArgConversation, ArgFile:
		if cmd.Name == "/help" {
			for _, c := range r.All() {
				values = append(values, strings.TrimPrefix(c.Name, "/"))
			}
		}
	}

	partial := strings.TrimLeft(rest, " ")
	var out []string
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(partial)) {
			out = append(out, cmd.Name+" "+v)
		}
	}
	sort.Strings(out)
	return out
}
