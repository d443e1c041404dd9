// Pulseboard - Real-Time Admin Dashboard Streaming
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulseboard

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/tomtom215/pulseboard/internal/client"
	"github.com/tomtom215/pulseboard/internal/stream"
)

var (
	topicStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	kindStyles = map[stream.Kind]lipgloss.Style{
		stream.KindInit:   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		stream.KindUpdate: lipgloss.NewStyle().Foreground(lipgloss.Color("32")),
		stream.KindAlert:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		stream.KindError:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}

	keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	statusStyles = map[client.Status]lipgloss.Style{
		client.StatusConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		client.StatusConnected:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("32")),
		client.StatusDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func header(kind stream.Kind, topic string) string {
	return fmt.Sprintf("%s %s", kindStyles[kind].Render(fmt.Sprintf("%-6s", kind)), topicStyle.Render(topic))
}

// renderState prints a topic's state with keys in sorted order.
func renderState(kind stream.Kind, topic string, state stream.State) string {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(header(kind, topic))
	for _, k := range keys {
		b.WriteString("\n  ")
		b.WriteString(keyStyle.Render(k + ":"))
		b.WriteString(" ")
		b.WriteString(compact(state[k]))
	}
	return b.String()
}

// renderRaw prints an alert or error payload on one line.
func renderRaw(kind stream.Kind, topic string, data json.RawMessage) string {
	return header(kind, topic) + " " + string(data)
}

func renderStatus(status client.Status, err error) string {
	s := statusStyles[status].Render(status.String())
	if err != nil {
		s += " " + metaStyle.Render(err.Error())
	}
	return s
}

func compact(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
