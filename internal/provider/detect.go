package provider

import (
	wlg "github.com/abadojack/whatlanggo"
)

// UndeterminedLanguage is returned when detection is not reliable.
const UndeterminedLanguage = "und"

// DetectLanguage returns the ISO-639-1 code of text and the confidence in
// [0,1]. It returns UndeterminedLanguage when detection is not reliable.
func DetectLanguage(text string) (code string, conf float64) {
	if len(text) == 0 {
		return UndeterminedLanguage, 0
	}
	info := wlg.Detect(text)
	if !info.IsReliable() {
		return UndeterminedLanguage, 0
	}
	iso6391 := info.Lang.Iso6391()
	if iso6391 == "" {
		return UndeterminedLanguage, info.Confidence
	}
	return iso6391, info.Confidence
}
