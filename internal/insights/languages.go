package insights

import (
	"errors"
	"strings"
)

const DefaultTranslateLanguage = "hi"

var ErrUnsupportedLanguage = errors.New("unsupported language")

var languages = map[string]string{
	"en": "English",
	"hi": "Hindi",
}

// LanguageName resolves a language code such as "hi" to the name used in prompts.
func LanguageName(code string) (string, error) {
	name, ok := languages[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return "", ErrUnsupportedLanguage
	}
	return name, nil
}

func SupportedLanguage(code string) bool {
	_, err := LanguageName(code)
	return err == nil
}
