// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the finchat TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Teal - Brand color, user messages, prompts
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

// TealDeep - Darker teal for backgrounds
var TealDeep = lipgloss.AdaptiveColor{Light: "#115E59", Dark: "#134E4A"}

// Indigo - Assistant messages, selections
var Indigo = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}

// IndigoDeep - Darker indigo for backgrounds
var IndigoDeep = lipgloss.AdaptiveColor{Light: "#3730A3", Dark: "#312E81"}

// Gold - Market data, document badges
var Gold = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Green - Success states, gains
var Green = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Red - Errors, failed sends, losses
var Red = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1C1C28"}

// SurfaceDim - Header and footer background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F4F4F5", Dark: "#16161E"}

// TextPrimary - Main text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#18181B", Dark: "#E4E4E7"}

// TextSecondary - Timestamps, stats, hints
var TextSecondary = lipgloss.AdaptiveColor{Light: "#71717A", Dark: "#A1A1AA"}

// TextMuted - Disabled and placeholder text
var TextMuted = lipgloss.AdaptiveColor{Light: "#A1A1AA", Dark: "#52525B"}

// Border - Default border color
var Border = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#3F3F46"}
