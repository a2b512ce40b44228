// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config handles rigchat configuration.
//
// There are two layers:
//
//   - Config: the application file ~/.rigchat/config.toml (storage backend,
//     endpoint, logging, UI). Environment variables override it.
//   - Settings: the user's chat settings (API key, model, sampling, system
//     prompt, custom models). They live in the key-value store next to the
//     conversation history and are validated before use.
//
// # Environment
//
//   - RIGCHAT_HOME: configuration and data directory
//   - RIGCHAT_BASE_URL: overrides api.base_url
//   - RIGCHAT_API_KEY: overrides the stored API key
//   - RIGCHAT_MODEL: overrides the stored model
//   - RIGCHAT_STORE: overrides storage.backend
//   - RIGCHAT_LOG_LEVEL: overrides log.level
//
// # Usage
//
//	cfg, err := config.Load()
//	settings := cfg.Overlay(storedSettings)
//	if err := settings.Validate(); err != nil { ... }
package config
