package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/normanking/empath/internal/pipeline"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	textStyle   = lipgloss.NewStyle().PaddingLeft(2)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// renderEnvelope formats a response for the terminal.
func renderEnvelope(env *pipeline.Envelope) string {
	var b strings.Builder

	name := env.Persona
	if env.ErrorFlag {
		name += " " + errorStyle.Render("(fallback)")
	}
	b.WriteString(headerStyle.Render(name))
	b.WriteString("\n")
	b.WriteString(textStyle.Render(env.Text))
	b.WriteString("\n")

	cls := env.Classification
	meta := []string{
		labelStyle.Render("emotion ") + valueStyle.Render(fmt.Sprintf("%s/%s", cls.Emotion, cls.Intensity)),
		labelStyle.Render("category ") + valueStyle.Render(string(cls.PrimaryCategory)),
		labelStyle.Render("mood ") + valueStyle.Render(env.MoodState),
		labelStyle.Render("confidence ") + valueStyle.Render(fmt.Sprintf("%.2f", env.Confidence)),
	}
	if cls.Priority != "" && cls.Priority != "normal" {
		meta = append(meta, labelStyle.Render("priority ")+hintStyle.Render(string(cls.Priority)))
	}
	b.WriteString(mutedStyle.Render("  ") + strings.Join(meta, mutedStyle.Render(" │ ")))
	b.WriteString("\n")

	for _, s := range env.Suggestions {
		b.WriteString(hintStyle.Render("  › " + s))
		b.WriteString("\n")
	}
	return b.String()
}
