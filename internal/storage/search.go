// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigchat/internal/model"
)

// SearchResult is a conversation matching a query.
type SearchResult struct {
	Conversation *model.Conversation

	// Snippet previews the first matching message, or the title when only
	// the title matched.
	Snippet string
}

// fold normalizes s for case- and width-insensitive matching.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Search returns conversations whose title or any message contains query,
// most recently updated first. An empty query matches nothing.
func (m *Manager) Search(query string) ([]SearchResult, error) {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	convs, err := m.Conversations()
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, c := range convs {
		if snippet, ok := match(c, q); ok {
			results = append(results, SearchResult{Conversation: c, Snippet: snippet})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Conversation.UpdatedAt.After(results[j].Conversation.UpdatedAt)
	})
	return results, nil
}

func match(c *model.Conversation, q string) (string, bool) {
	for _, msg := range c.Messages {
		if strings.Contains(fold(msg.Content), q) {
			return msg.Preview(60), true
		}
	}
	if !c.HasDefaultTitle() && strings.Contains(fold(c.Title), q) {
		return c.Title, true
	}
	return "", false
}
