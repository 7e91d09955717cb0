package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

func testFields() fieldSet {
	return newFieldSet(
		fieldSpec{key: "username", label: "Username"},
		fieldSpec{key: "password", label: "Password", secret: true},
	)
}

func TestFieldSetFocusCycle(t *testing.T) {
	fs := testFields()
	if fs.Editing() {
		t.Fatal("new field set should not be editing")
	}
	fs.Next()
	if fs.focus != 0 {
		t.Fatalf("focus after Next = %d, want 0", fs.focus)
	}
	fs.Next()
	fs.Next()
	if fs.focus != 0 {
		t.Fatalf("focus should wrap to 0, got %d", fs.focus)
	}
	fs.Prev()
	if fs.focus != 1 {
		t.Fatalf("focus after Prev = %d, want 1", fs.focus)
	}
	fs.Blur()
	if fs.Editing() {
		t.Fatal("Blur should clear focus")
	}
}

func TestFieldSetUpdateReportsChange(t *testing.T) {
	fs := testFields()
	if _, changed := fs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}); changed {
		t.Fatal("unfocused set must ignore input")
	}
	fs.Focus(0)
	_, changed := fs.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("al")})
	if !changed {
		t.Fatal("typing should report a change")
	}
	if got := fs.Value("username"); got != "al" {
		t.Fatalf("username = %q, want al", got)
	}
	fs.SetValue("password", "secret")
	if got := fs.Value("password"); got != "secret" {
		t.Fatalf("password = %q", got)
	}
	if got := fs.Value("missing"); got != "" {
		t.Fatalf("unknown key = %q, want empty", got)
	}
}

func TestFieldSetViewShowsErrorsAndMasksSecrets(t *testing.T) {
	fs := testFields()
	fs.SetValue("password", "hunter2")
	styles := GetTheme("Nightfox").Styles()
	out := ansi.Strip(fs.View(styles, NewBgStyle("#000000"), 60, map[string]string{"username": "required"}))

	if !strings.Contains(out, "Username") || !strings.Contains(out, "required") {
		t.Fatalf("view missing label or error:\n%s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret field rendered in clear:\n%s", out)
	}
}
