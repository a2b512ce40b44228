// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jeranaias/rigchat/internal/model"
)

// Themes accepted by Settings.Theme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

// DefaultSystemPrompt is the system message prepended to every prompt.
const DefaultSystemPrompt = "你是一个helpful、harmless、honest的AI助手。"

// Settings are the user's chat settings, stored as one JSON document.
type Settings struct {
	APIKey       string                  `json:"apiKey"`
	Model        string                  `json:"model" validate:"required"`
	EnableSearch bool                    `json:"enableSearch"`
	Temperature  float64                 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int                     `json:"maxTokens" validate:"gt=0"`
	SystemPrompt string                  `json:"systemPrompt"`
	Theme        string                  `json:"theme" validate:"omitempty,oneof=light dark auto"`
	CustomModels []model.ModelDescriptor `json:"customModels" validate:"dive"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Model:        model.DefaultModelID,
		EnableSearch: true,
		Temperature:  0.7,
		MaxTokens:    2000,
		SystemPrompt: DefaultSystemPrompt,
		Theme:        ThemeLight,
		CustomModels: model.DefaultModels(),
	}
}

// HasAPIKey reports whether a non-blank API key is set.
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Models returns the selectable models. An empty custom list falls back to
// the built-in list.
func (s Settings) Models() []model.ModelDescriptor {
	if len(s.CustomModels) == 0 {
		return model.DefaultModels()
	}
	return s.CustomModels
}

// CurrentModel returns the descriptor of the selected model. Models not in
// the list get a descriptor whose search support follows the id heuristic.
func (s Settings) CurrentModel() model.ModelDescriptor {
	if d, ok := model.FindModel(s.Models(), s.Model); ok {
		return d
	}
	return model.ModelDescriptor{
		Value:          s.Model,
		Label:          s.Model,
		SupportsSearch: model.SupportsSearch(s.Model, nil),
	}
}

// SearchActive reports whether requests will carry the search flag.
func (s Settings) SearchActive() bool {
	return s.EnableSearch && model.SupportsSearch(s.Model, s.Models())
}

// AddModel adds or replaces a custom model descriptor.
func (s *Settings) AddModel(d model.ModelDescriptor) {
	for i, m := range s.CustomModels {
		if m.Value == d.Value {
			s.CustomModels[i] = d
			return
		}
	}
	s.CustomModels = append(s.CustomModels, d)
}

// RemoveModel removes a custom model. It returns false if it was absent.
func (s *Settings) RemoveModel(value string) bool {
	for i, m := range s.CustomModels {
		if m.Value == value {
			s.CustomModels = append(s.CustomModels[:i], s.CustomModels[i+1:]...)
			return true
		}
	}
	return false
}

// FillDefaults replaces zero values that can never be valid with defaults.
// Temperature 0 is a legitimate setting and is kept.
func (s *Settings) FillDefaults() {
	d := DefaultSettings()
	if s.Model == "" {
		s.Model = d.Model
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = d.MaxTokens
	}
	if s.Theme == "" {
		s.Theme = d.Theme
	}
	if s.CustomModels == nil {
		s.CustomModels = d.CustomModels
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func settingsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks value ranges and returns ValidateErrors on failure.
func (s Settings) Validate() error {
	err := settingsValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make(ValidateErrors, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, ValidationError{
			Field:   strings.TrimPrefix(fe.Namespace(), "Settings."),
			Message: describeTag(fe),
		})
	}
	return errs
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// =============================================================================
// GET/SET BY NAME
// =============================================================================

// SettingKeys lists the names accepted by Settings.Set.
var SettingKeys = []string{
	"apiKey", "model", "enableSearch", "temperature", "maxTokens", "systemPrompt", "theme",
}

// Set assigns one setting from its string form. Keys match the JSON names
// case-insensitively; snake_case is accepted too.
func (s *Settings) Set(key, value string) error {
	switch strings.ToLower(strings.ReplaceAll(key, "_", "")) {
	case "apikey":
		s.APIKey = strings.TrimSpace(value)
	case "model":
		s.Model = strings.TrimSpace(value)
	case "enablesearch", "search":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		s.EnableSearch = b
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %v", err)
		}
		s.Temperature = f
	case "maxtokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %v", err)
		}
		s.MaxTokens = n
	case "systemprompt":
		s.SystemPrompt = value
	case "theme":
		s.Theme = strings.ToLower(strings.TrimSpace(value))
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

// Get returns one setting in string form. The API key is masked.
func (s Settings) Get(key string) (string, error) {
	switch strings.ToLower(strings.ReplaceAll(key, "_", "")) {
	case "apikey":
		return MaskKey(s.APIKey), nil
	case "model":
		return s.Model, nil
	case "enablesearch", "search":
		return strconv.FormatBool(s.EnableSearch), nil
	case "temperature":
		return strconv.FormatFloat(s.Temperature, 'f', -1, 64), nil
	case "maxtokens":
		return strconv.Itoa(s.MaxTokens), nil
	case "systemprompt":
		return s.SystemPrompt, nil
	case "theme":
		return s.Theme, nil
	}
	return "", fmt.Errorf("unknown setting: %s", key)
}

// MaskKey shows only the first and last four characters of a key.
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "[not set]"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
	}
}
