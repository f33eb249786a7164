package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsPatchLeavesOtherFieldsUntouched(t *testing.T) {
	base := DefaultSettings()
	off := false
	lang := Spanish

	got := SettingsPatch{StepByStepSolutions: &off}.Apply(base)
	assert.False(t, got.StepByStepSolutions)
	assert.Equal(t, base.Language, got.Language)
	assert.Equal(t, base.ShowSources, got.ShowSources)
	assert.Equal(t, base.FontSize, got.FontSize)

	got = SettingsPatch{Language: &lang}.Apply(got)
	assert.Equal(t, Spanish, got.Language)
	assert.False(t, got.StepByStepSolutions)
}

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"English": English,
		"spanish": Spanish,
		"zh":      Chinese,
		"pt-BR":   Portuguese,
		" ja ":    Japanese,
		"hi-IN":   Hindi,
	}
	for in, want := range cases {
		got, err := ParseLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLanguage("Klingon")
	assert.Error(t, err)
	_, err = ParseLanguage("it")
	assert.Error(t, err)
}

func TestLanguageLocales(t *testing.T) {
	assert.Equal(t, "en-US", English.SpeechLocale())
	assert.Equal(t, "fr-FR", French.SpeechLocale())
	assert.Equal(t, "en-US", Language("Elvish").SpeechLocale())
	assert.False(t, Language("Elvish").Valid())
	for _, l := range SupportedLanguages {
		assert.True(t, l.Valid(), l)
	}
}

func TestParseFontSize(t *testing.T) {
	fs, err := ParseFontSize("Large")
	require.NoError(t, err)
	assert.Equal(t, FontLarge, fs)

	_, err = ParseFontSize("huge")
	assert.Error(t, err)
}

func TestMessageCloneIsDeep(t *testing.T) {
	m := Message{ID: "ai-1", Role: RoleAssistant, Steps: []string{"a"}, Sources: []Source{{Title: "t"}}}
	c := m.Clone()
	c.Steps[0] = "changed"
	c.Sources[0].Title = "changed"
	assert.Equal(t, "a", m.Steps[0])
	assert.Equal(t, "t", m.Sources[0].Title)
}
