package domain

import "strings"

// DefaultLang is used whenever detection fails or a language is unsupported.
const DefaultLang = "en"

// SupportedLanguages maps primary language codes to the BCP-47 tags the
// speech services expect.
var SupportedLanguages = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"ar": "ar-SA",
	"zh": "zh-CN",
	"ja": "ja-JP",
}

// NormalizeLang reduces a language tag to its supported primary code.
// "en-US" becomes "en"; anything unsupported becomes DefaultLang.
func NormalizeLang(lang string) string {
	code := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := SupportedLanguages[code]; ok {
		return code
	}
	return DefaultLang
}

// IsSupported reports whether the primary code of lang is in the table.
func IsSupported(lang string) bool {
	code := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	_, ok := SupportedLanguages[code]
	return ok
}

// LocaleFor returns the BCP-47 tag for a primary language code.
func LocaleFor(lang string) string {
	if tag, ok := SupportedLanguages[NormalizeLang(lang)]; ok {
		return tag
	}
	return SupportedLanguages[DefaultLang]
}
