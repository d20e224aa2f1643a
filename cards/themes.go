package cards

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed themes/*.css
var themesFS embed.FS

// DefaultTheme is used when the caller does not pick one.
const DefaultTheme = Theme("transparent_blue")

// Theme identifies one of the embedded stylesheets. The set of valid values
// is fixed at build time by the contents of the themes directory.
type Theme string

var themeStyles = loadThemes()

func loadThemes() map[Theme]string {
	entries, err := themesFS.ReadDir("themes")
	if err != nil {
		panic(fmt.Sprintf("themes directory missing from binary: %v", err))
	}

	styles := make(map[Theme]string, len(entries))
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".css")
		if !ok {
			continue
		}
		data, err := themesFS.ReadFile("themes/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("failed to read embedded theme %s: %v", entry.Name(), err))
		}
		styles[Theme(name)] = string(data)
	}
	return styles
}

// ParseTheme maps a raw identifier to a Theme, rejecting unknown values. An
// empty identifier selects the default theme.
func ParseTheme(raw string) (Theme, error) {
	if raw == "" {
		return DefaultTheme, nil
	}
	t := Theme(raw)
	if _, ok := themeStyles[t]; !ok {
		return "", fmt.Errorf("unknown theme %q", raw)
	}
	return t, nil
}

// Themes lists the available theme identifiers, sorted.
func Themes() []string {
	names := make([]string, 0, len(themeStyles))
	for t := range themeStyles {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

func (t Theme) stylesheet() string {
	if css, ok := themeStyles[t]; ok {
		return css
	}
	return themeStyles[DefaultTheme]
}
