package cards

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed assets/language-colors.json
var languageColorsJSON []byte

const fallbackColor = "#000000"

var languageColors = loadLanguageColors()

func loadLanguageColors() map[string]string {
	colors := make(map[string]string)
	if err := json.Unmarshal(languageColorsJSON, &colors); err != nil {
		panic(fmt.Sprintf("failed to parse embedded language colors: %v", err))
	}
	return colors
}

// LanguageColor returns the display color for a programming language, or
// black for languages without a registered color.
func LanguageColor(language string) string {
	if color, ok := languageColors[language]; ok {
		return color
	}
	return fallbackColor
}
