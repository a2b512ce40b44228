// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/util"
)

// ErrInvalidFormat is returned when an import document is not a JSON
// array.
var ErrInvalidFormat = errors.New("invalid history format: expected a JSON array of conversations")

// HistoryFilename returns the bundle filename for t,
// ai-chat-history-<unix ms>.json.
func HistoryFilename(t time.Time) string {
	return fmt.Sprintf("ai-chat-history-%d.json", t.UnixMilli())
}

// WriteJSON writes convs as an indented JSON array.
func WriteJSON(w io.Writer, convs []*model.Conversation) error {
	if convs == nil {
		convs = []*model.Conversation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(convs); err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return nil
}

// ReadJSON parses a history bundle. Malformed JSON is a parse error; any
// valid JSON that is not an array is ErrInvalidFormat. Null entries are
// dropped.
func ReadJSON(r io.Reader) ([]*model.Conversation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidFormat
	}

	var convs []*model.Conversation
	if err := json.Unmarshal(raw, &convs); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}

	out := convs[:0]
	for _, c := range convs {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// WriteHistoryFile writes convs to dir under HistoryFilename and returns
// the path.
func WriteHistoryFile(dir string, convs []*model.Conversation) (string, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, convs); err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, HistoryFilename(now()))
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// ReadHistoryFile reads a bundle written by WriteHistoryFile.
func ReadHistoryFile(path string) ([]*model.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}
