package searchindex

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// minDetectRunes is the shortest text handed to the detector; shorter
// text gets the default language.
const minDetectRunes = 20

// LanguageDetector tags page text with an ISO 639-1 code.
type LanguageDetector interface {
	Detect(text string) string
}

// NewLanguageDetector builds a detector over the given ISO 639-1 codes.
// The first code is the default for text that cannot be classified. No
// codes yields a detector that returns "".
func NewLanguageDetector(codes []string) (LanguageDetector, error) {
	langs := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		lang := lingua.GetLanguageFromIsoCode639_1(lingua.GetIsoCode639_1FromValue(strings.ToLower(strings.TrimSpace(code))))
		if lang == lingua.Unknown {
			return nil, fmt.Errorf("unsupported language code %q", code)
		}
		langs = append(langs, lang)
	}

	switch len(langs) {
	case 0:
		return fixedLanguage(""), nil
	case 1:
		return fixedLanguage(isoCode(langs[0])), nil
	}
	return &linguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
		fallback: isoCode(langs[0]),
	}, nil
}

type fixedLanguage string

func (f fixedLanguage) Detect(string) string { return string(f) }

type linguaDetector struct {
	detector lingua.LanguageDetector
	fallback string
}

func (d *linguaDetector) Detect(text string) string {
	if utf8.RuneCountInString(text) < minDetectRunes {
		return d.fallback
	}
	if lang, ok := d.detector.DetectLanguageOf(text); ok {
		return isoCode(lang)
	}
	return d.fallback
}

func isoCode(lang lingua.Language) string {
	return strings.ToLower(lang.IsoCode639_1().String())
}
