package domain

// DefaultVoice is the fallback voice when a language has no mapping.
const DefaultVoice = "en-US-ChristopherNeural"

// voiceTable maps primary language codes to neural voice identifiers.
var voiceTable = map[string]string{
	"en": "en-US-ChristopherNeural",
	"es": "es-ES-AlvaroNeural",
	"fr": "fr-FR-HenriNeural",
	"ar": "ar-SA-HamedNeural",
	"de": "de-DE-ConradNeural",
	"it": "it-IT-DiegoNeural",
	"ja": "ja-JP-KeitaNeural",
	"zh": "zh-CN-YunxiNeural",
}

// VoiceFor selects a synthesis voice for a language code. Overrides take
// precedence over the built-in table; unsupported languages fall back to
// DefaultVoice.
func VoiceFor(lang string, overrides map[string]string) string {
	code := NormalizeLang(lang)
	if v, ok := overrides[code]; ok && v != "" {
		return v
	}
	if v, ok := voiceTable[code]; ok {
		return v
	}
	return DefaultVoice
}
