package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies which part of the UI has focus, for help lookup.
type Context string

const (
	ContextTree    Context = "tree"
	ContextGroups  Context = "groups"
	ContextSearch  Context = "search"
	ContextPicker  Context = "picker"
	ContextSummary Context = "summary"
)

// ContextHelpContent contains compact help content for each context.
// Content should fit on one screen (~20 lines) without scrolling.
var ContextHelpContent = map[Context]string{
	ContextTree:    contextHelpTree,
	ContextGroups:  contextHelpGroups,
	ContextSearch:  contextHelpSearch,
	ContextPicker:  contextHelpPicker,
	ContextSummary: contextHelpSummary,
}

// GetContextHelp returns the help content for a given context.
// Falls back to generic help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the context-specific help modal.
// This is a compact modal (~60 chars wide) that shows quick reference info.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)

	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(theme.Primary)
	contentStyle := r.NewStyle().
		Foreground(theme.Subtext)
	footerStyle := r.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Esc or ? to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	modal := modalStyle.Render(b.String())
	if width <= 0 || height <= 0 {
		return modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

const contextHelpTree = `## Hierarchy

**Navigation**
  j/k       Move up/down
  h/l       Collapse / expand
  Enter     Toggle expand
  g/G       Jump to top/bottom
  E/C       Expand / collapse all

**Selection**
  Space     Select or deselect node
  [x]       Directly selected
  [~]       Covered by a selected ancestor

**Views**
  Tab       Products / Locations
  v         Hierarchy / Groups
  /         Search
  w         Switch workspace`

const contextHelpGroups = `## Groups

**Navigation**
  j/k       Move up/down
  /         Filter by name

**Selection**
  Space     Select group
A group replaces any node selection.
Selecting a node clears the group.

  v         Back to hierarchy`

const contextHelpSearch = `## Search

Matches node names and ids, ignoring case.

  Enter     Keep term, return to tree
  Esc       Clear search
  Ctrl+T    Toggle filter / expand

**Filter** hides non-matching branches.
**Expand** keeps every node and opens
the paths down to each match.`

const contextHelpPicker = `## Context Picker

  p         Choose scenario
  P         Choose panel
  r         Choose rule
  ↑/↓       Move
  Enter     Confirm
  Esc       Cancel

A panel fixes the product and location
scope; selections become read-only.`

const contextHelpSummary = `## Scope Summary

  j/k       Scroll
  y         Copy chat context JSON
  Esc       Close`

const contextHelpGeneric = `## Quick Reference

**Global Keys**
  ?         Help overlay
  s         Scope summary
  y         Copy chat context
  n         New chat (reset scope)
  w         Switch workspace
  Esc       Close/back
  q         Quit`
