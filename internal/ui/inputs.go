package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// fieldSpec describes one text input. key matches the json name used in
// form field errors.
type fieldSpec struct {
	key         string
	label       string
	placeholder string
	limit       int
	secret      bool
}

// fieldSet is an ordered group of text inputs with at most one focused.
type fieldSet struct {
	specs  []fieldSpec
	inputs []textinput.Model
	focus  int // -1 when nothing is focused
}

func newFieldSet(specs ...fieldSpec) fieldSet {
	fs := fieldSet{specs: specs, focus: -1}
	for _, s := range specs {
		ti := textinput.New()
		ti.Placeholder = s.placeholder
		ti.Prompt = ""
		ti.CharLimit = s.limit
		if ti.CharLimit == 0 {
			ti.CharLimit = 64
		}
		if s.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		fs.inputs = append(fs.inputs, ti)
	}
	return fs
}

// Editing reports whether an input has focus.
func (f fieldSet) Editing() bool {
	return f.focus >= 0
}

// Focus focuses input i and blurs the rest.
func (f *fieldSet) Focus(i int) tea.Cmd {
	if i < 0 || i >= len(f.inputs) {
		return nil
	}
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focus = i
	return f.inputs[i].Focus()
}

// Blur removes focus from every input.
func (f *fieldSet) Blur() {
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focus = -1
}

// Next moves focus forward, wrapping.
func (f *fieldSet) Next() tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	return f.Focus((f.focus + 1) % len(f.inputs))
}

// Prev moves focus backward, wrapping.
func (f *fieldSet) Prev() tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	i := f.focus - 1
	if i < 0 {
		i = len(f.inputs) - 1
	}
	return f.Focus(i)
}

// Value returns the text of the input with key.
func (f fieldSet) Value(key string) string {
	for i, s := range f.specs {
		if s.key == key {
			return f.inputs[i].Value()
		}
	}
	return ""
}

// SetValue replaces the text of the input with key.
func (f *fieldSet) SetValue(key, value string) {
	for i, s := range f.specs {
		if s.key == key {
			f.inputs[i].SetValue(value)
			return
		}
	}
}

// Update forwards msg to the focused input and reports whether its value
// changed.
func (f *fieldSet) Update(msg tea.Msg) (tea.Cmd, bool) {
	if f.focus < 0 {
		return nil, false
	}
	before := f.inputs[f.focus].Value()
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd, f.inputs[f.focus].Value() != before
}

// View renders one "label  value" line per input with any field error
// below it.
func (f fieldSet) View(styles Styles, bg BgStyle, width int, errs map[string]string) string {
	labelWidth := 0
	for _, s := range f.specs {
		labelWidth = max(labelWidth, lipgloss.Width(s.label))
	}
	inputWidth := max(width-labelWidth-4, 8)

	lines := make([]string, 0, len(f.specs)*2)
	for i, s := range f.specs {
		ti := f.inputs[i]
		ti.Width = inputWidth
		label := styles.MutedText
		if i == f.focus {
			label = styles.AccentText.Bold(true)
		}
		marker := bg.Spaces(2)
		if i == f.focus {
			marker = bg.Render("›", styles.AccentText) + bg.Space()
		}
		lines = append(lines, marker+bg.Render(padRight(s.label, labelWidth), label)+bg.Spaces(2)+ti.View())
		if msg := strings.TrimSpace(errs[s.key]); msg != "" {
			lines = append(lines, bg.Spaces(labelWidth+4)+bg.Render(msg, styles.DangerText))
		}
	}
	return strings.Join(lines, "\n")
}
