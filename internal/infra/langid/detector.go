package langid

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"voice-assistant/internal/domain"
)

// Detector guesses the language of reply text so the right synthesis
// voice can be picked. Results outside the supported table, and guesses
// below the confidence floor, fall back to the configured default.
type Detector struct {
	fallback      string
	minConfidence float64
}

func NewDetector(fallback string) *Detector {
	if fallback == "" {
		fallback = domain.DefaultLang
	}
	return &Detector{
		fallback:      domain.NormalizeLang(fallback),
		minConfidence: 0.3,
	}
}

func (d *Detector) Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return d.fallback
	}

	info := whatlanggo.Detect(text)
	if info.Confidence < d.minConfidence {
		return d.fallback
	}

	code := info.Lang.Iso6391()
	if code == "" || !domain.IsSupported(code) {
		return d.fallback
	}
	return domain.NormalizeLang(code)
}
