// Package locale picks the page language and renders the language menu.
package locale

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Default is the language used when the query names none or an unknown one.
const Default = "ja"

// Names maps supported language codes to their display names.
var Names = map[string]string{
	"ar":        "العربية",
	"be-tarask": "Taraškievica",
	"br":        "Brezhoneg",
	"ca":        "Català",
	"cs":        "Česky",
	"da":        "Dansk",
	"de":        "Deutsch",
	"el":        "Ελληνικά",
	"en":        "English",
	"es":        "Español",
	"et":        "Eesti",
	"fa":        "فارسی",
	"fr":        "Français",
	"he":        "עברית",
	"hrx":       "Hunsrik",
	"hu":        "Magyar",
	"ia":        "Interlingua",
	"is":        "Íslenska",
	"it":        "Italiano",
	"ja":        "日本語",
	"ko":        "한국어",
	"mk":        "Македонски",
	"ms":        "Bahasa Melayu",
	"nb":        "Norsk Bokmål",
	"nl":        "Nederlands, Vlaams",
	"oc":        "Lenga d'òc",
	"pl":        "Polski",
	"pms":       "Piemontèis",
	"pt-br":     "Português Brasileiro",
	"ro":        "Română",
	"ru":        "Русский",
	"sc":        "Sardu",
	"sk":        "Slovenčina",
	"sr":        "Српски",
	"sv":        "Svenska",
	"ta":        "தமிழ்",
	"th":        "ภาษาไทย",
	"tlh":       "tlhIngan Hol",
	"tr":        "Türkçe",
	"uk":        "Українська",
	"vi":        "Tiếng Việt",
	"zh-hans":   "简体中文",
	"zh-hant":   "正體中文",
}

// RightToLeft lists codes written right to left. Not every entry has to be
// a supported language.
var RightToLeft = []string{"ar", "fa", "he", "lki"}

var langParam = regexp.MustCompile(`[?&]lang=([^&]+)`)

// Resolve returns the language named by the first lang parameter of query
// ("?a=1&lang=fr"), or def when the parameter is missing, cannot be decoded
// or is not a key of supported.
func Resolve(query string, supported map[string]string, def string) string {
	m := langParam.FindStringSubmatch(query)
	if m == nil {
		return def
	}
	lang, err := url.PathUnescape(strings.ReplaceAll(m[1], "+", "%20"))
	if err != nil {
		return def
	}
	if _, ok := supported[lang]; !ok {
		return def
	}
	return lang
}

// IsRightToLeft reports whether code is in rtl.
func IsRightToLeft(code string, rtl []string) bool {
	for _, c := range rtl {
		if c == code {
			return true
		}
	}
	return false
}

// Option is one entry of the language menu.
type Option struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Selected bool   `json:"selected,omitempty"`
}

// Menu returns the languages sorted by display name with selected marked.
func Menu(names map[string]string, selected string) []Option {
	opts := make([]Option, 0, len(names))
	for code, name := range names {
		opts = append(opts, Option{Code: code, Name: name, Selected: code == selected})
	}
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Name != opts[j].Name {
			return opts[i].Name < opts[j].Name
		}
		return opts[i].Code < opts[j].Code
	})
	return opts
}

var langAssign = regexp.MustCompile(`([?&]lang=)[^&]*`)

// SwitchQuery rewrites a query string so that it selects lang, keeping
// every other parameter.
func SwitchQuery(search, lang string) string {
	lang = strings.ReplaceAll(url.QueryEscape(lang), "+", "%20")
	switch {
	case len(search) <= 1:
		return "?lang=" + lang
	case langAssign.MatchString(search):
		loc := langAssign.FindStringSubmatchIndex(search)
		return search[:loc[3]] + lang + search[loc[1]:]
	default:
		return strings.Replace(search, "?", "?lang="+lang+"&", 1)
	}
}

// Suggest returns the supported code closest to code by edit distance.
// ok is false when nothing is within two edits.
func Suggest(code string, names map[string]string) (string, bool) {
	best, bestDist := "", 3
	for c := range names {
		d := levenshtein.ComputeDistance(strings.ToLower(code), c)
		if d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
