// Package catalog lists the languages, dialects and models the service
// advertises.
package catalog

import "strings"

// Model identifiers served by default.
const (
	ModelLarge = "Qwen3-ASR-1.7B"
	ModelSmall = "Qwen3-ASR-0.6B"
)

var languages = []string{
	"Chinese", "English", "Cantonese", "Arabic", "German", "French", "Spanish", "Portuguese",
	"Indonesian", "Italian", "Korean", "Russian", "Thai", "Vietnamese", "Japanese", "Turkish",
	"Hindi", "Malay", "Dutch", "Swedish", "Danish", "Finnish", "Polish", "Czech", "Filipino",
	"Persian", "Greek", "Romanian", "Hungarian", "Macedonian",
}

var dialects = []string{
	"Anhui", "Dongbei", "Fujian", "Gansu", "Guizhou", "Hebei", "Henan", "Hubei", "Hunan",
	"Jiangxi", "Ningxia", "Shandong", "Shaanxi", "Shanxi", "Sichuan", "Tianjin", "Yunnan",
	"Zhejiang", "Cantonese (Hong Kong)", "Cantonese (Guangdong)", "Wu", "Minnan",
}

var models = []string{ModelLarge, ModelSmall}

// Languages returns a copy of the supported language names.
func Languages() []string { return clone(languages) }

// Dialects returns a copy of the supported Chinese dialect names.
func Dialects() []string { return clone(dialects) }

// Models returns a copy of the built-in model identifiers.
func Models() []string { return clone(models) }

// NormalizeLanguage maps a client language hint to the value passed to the
// model. "auto" and empty mean detect; known names are canonicalised
// case-insensitively; anything else is passed through trimmed.
func NormalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return ""
	}
	for _, l := range languages {
		if strings.EqualFold(l, s) {
			return l
		}
	}
	for _, d := range dialects {
		if strings.EqualFold(d, s) {
			return d
		}
	}
	return s
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
