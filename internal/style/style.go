// Package style builds the card stylesheet from preferences and installs it
// into a host document.
package style

import (
	"fmt"
	"strings"

	"profilecard/internal/prefs"
)

// ElementID tags the one stylesheet element the card owns.
const ElementID = "pekora-ui-style"

// ContainerID is the id the render target carries once claimed.
const ContainerID = "pekora-profile-restore"

// Derived sizes are fixed multiples of --base-font.
const (
	HeadingScale = 1.4
	BadgeScale   = 0.9
	GearScale    = 1.05
)

// Var is one CSS custom property.
type Var struct {
	Name  string
	Value string
}

// Palette is a named, ordered set of theme variables. Dark and Light define
// the same names with different values.
type Palette struct {
	Name prefs.Theme
	Vars []Var
}

var Dark = Palette{
	Name: prefs.ThemeDark,
	Vars: []Var{
		{"--bg", "#071025"},
		{"--card", "linear-gradient(180deg,#081522,#07131d)"},
		{"--text", "#e6eef8"},
		{"--muted", "#9fb0c9"},
		{"--accent", "#1e90ff"},
		{"--danger", "#ff3b3b"},
		{"--glass", "rgba(255,255,255,0.02)"},
		{"--radius", "10px"},
	},
}

var Light = Palette{
	Name: prefs.ThemeLight,
	Vars: []Var{
		{"--bg", "#f6f8fb"},
		{"--card", "linear-gradient(180deg,#ffffff,#f7fbff)"},
		{"--text", "#0b1b2b"},
		{"--muted", "#5b6b7a"},
		{"--accent", "#0b7cff"},
		{"--danger", "#d33b3b"},
		{"--glass", "rgba(9,18,28,0.03)"},
		{"--radius", "8px"},
	},
}

// PaletteFor maps a theme to its palette; anything but light is dark.
func PaletteFor(t prefs.Theme) Palette {
	if t == prefs.ThemeLight {
		return Light
	}
	return Dark
}

// Generate returns the complete stylesheet for p.
func Generate(p prefs.Preferences) string {
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, v := range PaletteFor(p.Theme).Vars {
		fmt.Fprintf(&b, "  %s: %s;\n", v.Name, v.Value)
	}
	b.WriteString("  --gap: 12px;\n")
	fmt.Fprintf(&b, "  --avatar-size: %dpx;\n", p.AvatarSize)
	fmt.Fprintf(&b, "  --base-font: %dpx;\n", p.FontSize)
	b.WriteString("}\n")
	b.WriteString(strings.NewReplacer(
		"{{root}}", "#"+ContainerID,
		"{{heading}}", scaled(HeadingScale),
		"{{badge}}", scaled(BadgeScale),
		"{{gear}}", scaled(GearScale),
	).Replace(rules))
	return b.String()
}

func scaled(f float64) string {
	return fmt.Sprintf("calc(var(--base-font) * %g)", f)
}

const rules = `{{root}} {
  position: relative;
  max-width: 1400px;
  margin: 30px auto;
  padding: 40px;
  border-radius: var(--radius);
  background: var(--card);
  color: var(--text);
  font-family: Inter, system-ui, -apple-system, "Segoe UI", Roboto, Arial;
  font-size: var(--base-font);
  box-shadow: 0 10px 30px rgba(2,6,23,0.6);
}
{{root}} .top { display: flex; gap: var(--gap); align-items: flex-start; flex-wrap: wrap; }
{{root}} .avatar { width: var(--avatar-size); height: var(--avatar-size); border-radius: var(--radius); object-fit: cover; flex-shrink: 0; }
{{root}} .meta .display { font-weight: 800; font-size: {{heading}}; }
{{root}} .meta .handle { color: var(--muted); }
{{root}} .badges { margin-top: 6px; display: flex; gap: 8px; flex-wrap: wrap; }
{{root}} .badge { padding: 6px 8px; border-radius: 8px; font-weight: 700; font-size: {{badge}}; }
{{root}} .badge.banned { background: var(--danger); color: #fff; }
{{root}} .badge.verified { background: var(--accent); color: #fff; }
{{root}} .badge.staff { background: #ffcc00; color: #000; }
{{root}} .stat-row { margin-top: 10px; display: flex; gap: 18px; color: var(--muted); flex-wrap: wrap; }
{{root}} .bio { margin-top: 12px; padding: 12px; background: var(--glass); border-radius: 8px; white-space: pre-wrap; }
{{root}} .section h3 { font-size: {{heading}}; font-weight: 500; }
{{root}} .section .placeholder { opacity: 0.5; }
{{root}} .collectibles { margin-top: 12px; }
{{root}} .collectibles .grid { display: flex; gap: 8px; flex-wrap: wrap; }
{{root}} .collectibles img { width: 64px; height: 64px; border-radius: 6px; object-fit: cover; }
{{root}} .gear { position: absolute; right: 14px; top: 14px; color: var(--muted); text-decoration: none; font-size: {{gear}}; }
{{root}}.error { max-width: 900px; padding: 12px; background: #2b0b0b; color: #ffdede; }
{{root}}.compact { padding: 8px; }
{{root}}.compact .bio,
{{root}}.compact .collectibles { display: none; }
`
