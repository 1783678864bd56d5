package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type modelState int

const (
	stateSelectStruct modelState = iota
	stateFilter
	stateShowLayout
)

// previewArchs are offered in the layout view after the starting GOARCH
var previewArchs = []string{"amd64", "arm64", "386", "wasm"}

type interactiveModel struct {
	views    []structView
	visible  []int
	archs    []string
	filter   textinput.Model
	archIdx  int
	selected int
	state    modelState
}

func newInteractiveModel(views []structView, goarch string) *interactiveModel {
	archs := []string{goarch}
	for _, a := range previewArchs {
		if a != goarch {
			archs = append(archs, a)
		}
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter by name"
	ti.Width = 40

	m := &interactiveModel{
		views:  views,
		archs:  archs,
		filter: ti,
		state:  stateSelectStruct,
	}
	m.applyFilter()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) goarch() string {
	return m.archs[m.archIdx]
}

// applyFilter keeps the views whose type name contains the filter text
func (m *interactiveModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for i, v := range m.views {
		if q == "" || strings.Contains(strings.ToLower(v.s.Name), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateFilter {
		switch key.String() {
		case "enter", "esc":
			m.filter.Blur()
			m.state = stateSelectStruct
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.state == stateSelectStruct && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateSelectStruct && m.selected < len(m.visible)-1 {
			m.selected++
		}

	case "/":
		if m.state == stateSelectStruct {
			m.state = stateFilter
			return m, m.filter.Focus()
		}

	case "a":
		m.archIdx = (m.archIdx + 1) % len(m.archs)

	case "enter":
		switch m.state {
		case stateSelectStruct:
			if len(m.visible) > 0 {
				m.state = stateShowLayout
			}
		case stateShowLayout:
			m.state = stateSelectStruct
		}

	case "esc":
		if m.state == stateShowLayout {
			m.state = stateSelectStruct
		}
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("fieldoffsets"))
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(m.goarch()))
	b.WriteString("\n\n")

	if len(m.views) == 0 {
		b.WriteString("No structs selected.\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	switch m.state {
	case stateSelectStruct, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		for i, idx := range m.visible {
			line := m.formatStruct(m.views[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter layout • / filter • a arch • q quit"))

	case stateShowLayout:
		v := m.views[m.visible[m.selected]]
		rows, size, err := v.rows(m.goarch())
		b.WriteString(fmt.Sprintf("%s  size %s\n", nameStyle.Render(v.title()), size))
		if err != nil {
			b.WriteString(errorStyle.Render(err.Error()))
			b.WriteString("\n")
		}
		b.WriteString(layoutTable(rows, true))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("a arch • enter/esc back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatStruct(v structView) string {
	return fmt.Sprintf("%s %s", nameStyle.Render(v.title()), typeStyle.Render(fmt.Sprintf("(%d fields)", len(v.s.Fields))))
}

func runInteractive(views []structView, goarch string) error {
	p := tea.NewProgram(newInteractiveModel(views, goarch), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
