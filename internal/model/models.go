// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// ModelDescriptor describes a selectable model.
type ModelDescriptor struct {
	// Value is the model identifier sent to the API.
	Value string `json:"value" validate:"required"`

	// Label is the display name.
	Label string `json:"label"`

	// SupportsSearch enables the enable_search request flag for this model.
	SupportsSearch bool `json:"supportsSearch"`
}

// DisplayName returns the label, falling back to the value.
func (d ModelDescriptor) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Value
}

// DefaultModelID is the model used when nothing else is configured.
const DefaultModelID = "qwen3-max"

// DefaultModels returns the built-in model list.
func DefaultModels() []ModelDescriptor {
	return []ModelDescriptor{
		{Value: DefaultModelID, Label: "Qwen3-Max", SupportsSearch: true},
	}
}

// FindModel looks up value in models.
func FindModel(models []ModelDescriptor, value string) (ModelDescriptor, bool) {
	for _, m := range models {
		if m.Value == value {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}

// SupportsSearch reports whether requests for modelID may carry the search
// flag. A descriptor in models decides; otherwise ids containing "latest" or
// "qwen3" are assumed capable.
func SupportsSearch(modelID string, models []ModelDescriptor) bool {
	if d, ok := FindModel(models, modelID); ok {
		return d.SupportsSearch
	}
	return strings.Contains(modelID, "latest") || strings.Contains(modelID, "qwen3")
}
