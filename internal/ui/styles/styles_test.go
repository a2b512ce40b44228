// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ExplicitBackground(t *testing.T) {
	assert.True(t, NewTheme("dark").IsDark)
	assert.False(t, NewTheme("light").IsDark)
}

func TestRoleLabel(t *testing.T) {
	th := NewTheme("light")
	assert.Equal(t, th.UserLabel.Render("x"), th.RoleLabel("user").Render("x"))
	assert.Equal(t, th.SystemLabel.Render("x"), th.RoleLabel("system").Render("x"))
	assert.Equal(t, th.AssistantLabel.Render("x"), th.RoleLabel("assistant").Render("x"))
}

func TestRenderHelpers(t *testing.T) {
	assert.Contains(t, RenderError("boom"), "[ERR] boom")
	assert.Contains(t, RenderSuccess("saved"), "[OK] saved")
	assert.Contains(t, RenderInfo("note"), "note")
}
