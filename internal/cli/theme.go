package cli

import (
	"sync"

	"github.com/fatih/color"

	"github.com/at-ishikawa/mentalmath/internal/profile"
)

// ColorScheme is one selectable terminal palette.
type ColorScheme struct {
	ID     string
	Name   string
	Accent string // hex accent used by the web client
	attrs  []color.Attribute
}

// ColorSchemes is the catalogue in profile.ColorSchemes order.
var ColorSchemes = []ColorScheme{
	{ID: "cyan", Name: "Cyan Dark", Accent: "#00ffff", attrs: []color.Attribute{color.FgHiCyan}},
	{ID: "purple", Name: "Purple Dark", Accent: "#a855f7", attrs: []color.Attribute{color.FgHiMagenta}},
	{ID: "green", Name: "Green Dark", Accent: "#10b981", attrs: []color.Attribute{color.FgHiGreen}},
	{ID: "orange", Name: "Orange Dark", Accent: "#f97316", attrs: []color.Attribute{color.FgYellow}},
	{ID: "blue", Name: "Blue Dark", Accent: "#3b82f6", attrs: []color.Attribute{color.FgHiBlue}},
	{ID: "pink", Name: "Pink Dark", Accent: "#ec4899", attrs: []color.Attribute{color.FgMagenta}},
	{ID: "neon", Name: "Neon Dark", Accent: "#00d4ff", attrs: []color.Attribute{color.FgHiCyan, color.Bold}},
	{ID: "sunset", Name: "Sunset Dark", Accent: "#f59e0b", attrs: []color.Attribute{color.FgHiYellow}},
}

// LookupColorScheme returns the scheme with id, or the default one.
func LookupColorScheme(id string) ColorScheme {
	for _, s := range ColorSchemes {
		if s.ID == id {
			return s
		}
	}
	return ColorSchemes[0]
}

// Theme holds the active accent color. Apply is safe to call from the
// account manager's refresh goroutine.
type Theme struct {
	mu     sync.RWMutex
	scheme ColorScheme
	accent *color.Color
}

// NewTheme starts with the default color scheme.
func NewTheme() *Theme {
	t := &Theme{}
	t.Apply(profile.DefaultColorScheme)
	return t
}

// Apply switches the accent color.
func (t *Theme) Apply(id string) {
	scheme := LookupColorScheme(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scheme = scheme
	t.accent = color.New(scheme.attrs...)
}

// Scheme returns the active scheme.
func (t *Theme) Scheme() ColorScheme {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scheme
}

// Accent formats text in the accent color.
func (t *Theme) Accent(format string, a ...any) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accent.Sprintf(format, a...)
}
