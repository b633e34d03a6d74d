// Package langs knows which languages and accents a station can pick.
package langs

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/language"
	translate "google.golang.org/api/translate/v2"
)

// Accents maps a language code to its recognition locales, preferred
// locale first.
var Accents = map[string][]string{
	"en": {"en-US", "en-GB", "en-IN", "en-AU", "en-CA", "en-NZ"},
	"es": {"es-ES", "es-MX", "es-US", "es-AR", "es-CO"},
	"fr": {"fr-FR", "fr-CA", "fr-BE", "fr-CH"},
	"de": {"de-DE", "de-AT", "de-CH"},
	"it": {"it-IT", "it-CH"},
	"pt": {"pt-PT", "pt-BR"},
	"ar": {"ar-SA", "ar-EG", "ar-AE"},
	"ru": {"ru-RU"},
	"ja": {"ja-JP"},
	"ko": {"ko-KR"},
	"zh": {"zh-CN", "zh-TW"},
	"hi": {"hi-IN"},
	"te": {"te-IN"},
	"ta": {"ta-IN"},
	"kn": {"kn-IN"},
	"ml": {"ml-IN"},
	"bn": {"bn-IN"},
	"gu": {"gu-IN"},
	"mr": {"mr-IN"},
	"nl": {"nl-NL", "nl-BE"},
	"tr": {"tr-TR"},
	"pl": {"pl-PL"},
	"sv": {"sv-SE"},
	"da": {"da-DK"},
	"fi": {"fi-FI"},
	"no": {"nb-NO"},
}

// Names is used when the language list cannot be fetched.
var Names = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"es": "Spanish",
	"fr": "French",
	"te": "Telugu",
	"ta": "Tamil",
}

// DefaultLocale is the preferred locale for lang, or lang itself when we
// know no accents for it.
func DefaultLocale(lang string) string {
	if accents, ok := Accents[lang]; ok && len(accents) > 0 {
		return accents[0]
	}
	return lang
}

// Base strips the region from a locale: "zh-CN" becomes "zh".
func Base(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return strings.ToLower(locale[:i])
	}
	return strings.ToLower(locale)
}

// Normalize checks a language code and returns its lower-case base
// language: "FR" becomes "fr".
func Normalize(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("unknown language %q: %w", code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// ValidLocale reports whether locale is one of lang's accents. For a
// language without known accents any locale of that language will do.
func ValidLocale(lang, locale string) bool {
	if accents, ok := Accents[lang]; ok {
		return slices.Contains(accents, locale)
	}
	return locale != "" && Base(locale) == lang
}

// Codes lists the languages with known accents.
func Codes() []string {
	codes := make([]string, 0, len(Accents))
	for code := range Accents {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Next is the language after code in Codes, wrapping around.
func Next(code string) string {
	return next(Codes(), code)
}

// NextLocale is the accent after locale for lang, wrapping around.
func NextLocale(lang, locale string) string {
	accents, ok := Accents[lang]
	if !ok {
		return DefaultLocale(lang)
	}
	return next(accents, locale)
}

func next(list []string, v string) string {
	i := slices.Index(list, v)
	return list[(i+1)%len(list)]
}

type Language struct {
	Code string
	Name string
}

// Lister fetches the languages supported by the translation service.
type Lister struct {
	svc *translate.Service
}

func NewLister(svc *translate.Service) *Lister {
	return &Lister{svc: svc}
}

// Languages returns the supported languages sorted by code. When the
// service cannot be reached the fallback table is returned along with the
// error.
func (l *Lister) Languages(ctx context.Context) ([]Language, error) {
	if l.svc == nil {
		return fallback(), fmt.Errorf("no translation service configured")
	}

	resp, err := l.svc.Languages.List().Target("en").Context(ctx).Do()
	if err != nil {
		return fallback(), fmt.Errorf("failed to list languages: %w", err)
	}

	out := make([]Language, 0, len(resp.Languages))
	for _, lang := range resp.Languages {
		out = append(out, Language{Code: lang.Language, Name: lang.Name})
	}
	sortLanguages(out)
	return out, nil
}

func fallback() []Language {
	out := make([]Language, 0, len(Names))
	for code, name := range Names {
		out = append(out, Language{Code: code, Name: name})
	}
	sortLanguages(out)
	return out
}

func sortLanguages(ls []Language) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].Code < ls[j].Code })
}
