package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the human languages the assistant supports
type Language string

const (
	English    Language = "English"
	Spanish    Language = "Spanish"
	French     Language = "French"
	German     Language = "German"
	Chinese    Language = "Chinese"
	Hindi      Language = "Hindi"
	Arabic     Language = "Arabic"
	Portuguese Language = "Portuguese"
	Russian    Language = "Russian"
	Japanese   Language = "Japanese"
)

// SupportedLanguages lists languages in display order
var SupportedLanguages = []Language{
	English, Spanish, French, German, Chinese,
	Hindi, Arabic, Portuguese, Russian, Japanese,
}

var speechLocales = map[Language]string{
	English:    "en-US",
	Spanish:    "es-ES",
	French:     "fr-FR",
	German:     "de-DE",
	Chinese:    "zh-CN",
	Hindi:      "hi-IN",
	Arabic:     "ar-SA",
	Portuguese: "pt-BR",
	Russian:    "ru-RU",
	Japanese:   "ja-JP",
}

// ParseLanguage accepts a display name ("Spanish") or a BCP 47 tag ("es", "pt-BR")
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for _, l := range SupportedLanguages {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}

	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("unknown language: %q", s)
	}
	base, _ := tag.Base()
	for _, l := range SupportedLanguages {
		if b, _ := l.Tag().Base(); b == base {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language: %q", s)
}

// Valid reports whether l is one of SupportedLanguages
func (l Language) Valid() bool {
	_, ok := speechLocales[l]
	return ok
}

// SpeechLocale is the locale handed to recognition and synthesis engines
func (l Language) SpeechLocale() string {
	if loc, ok := speechLocales[l]; ok {
		return loc
	}
	return speechLocales[English]
}

// Tag returns the BCP 47 tag used for message localization
func (l Language) Tag() language.Tag {
	return language.Make(l.SpeechLocale())
}
