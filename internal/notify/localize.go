package notify

import (
	"golang.org/x/text/language"

	"github.com/edap/edap-server/internal/model"
)

var titles = map[language.Tag]map[model.EventKind]string{
	language.English: {
		model.KindNote:    "New note",
		model.KindGrade:   "New grade",
		model.KindAbsence: "New absence",
		model.KindTest:    "New test",
		model.KindClass:   "New class",
	},
	language.Croatian: {
		model.KindNote:    "Nova bilješka",
		model.KindGrade:   "Nova ocjena",
		model.KindAbsence: "Novi izostanak",
		model.KindTest:    "Novi ispit",
		model.KindClass:   "Novi razred",
	},
	language.German: {
		model.KindNote:    "Neue Notiz",
		model.KindGrade:   "Neue Note",
		model.KindAbsence: "Neue Abwesenheit",
		model.KindTest:    "Neue Prüfung",
		model.KindClass:   "Neue Klasse",
	},
	language.Swedish: {
		model.KindNote:    "Ny anteckning",
		model.KindGrade:   "Nytt betyg",
		model.KindAbsence: "Ny frånvaro",
		model.KindTest:    "Nytt prov",
		model.KindClass:   "Ny klass",
	},
}

// Localizer picks notification titles in the language reported by the app.
type Localizer struct {
	supported []language.Tag
	matcher   language.Matcher
}

// NewLocalizer creates a Localizer that falls back to fallback, or English when
// fallback is not supported.
func NewLocalizer(fallback string) *Localizer {
	def := language.English
	if tag, err := language.Parse(fallback); err == nil {
		if _, ok := titles[tag]; ok {
			def = tag
		}
	}

	supported := []language.Tag{def}
	for _, tag := range []language.Tag{language.English, language.Croatian, language.German, language.Swedish} {
		if tag != def {
			supported = append(supported, tag)
		}
	}
	return &Localizer{supported: supported, matcher: language.NewMatcher(supported)}
}

// Title returns the notification title for kind in lang. lang may be any BCP 47
// tag or Accept-Language style list; unknown languages get the fallback.
func (l *Localizer) Title(lang string, kind model.EventKind) string {
	tag := l.supported[0]
	if lang != "" {
		_, idx := language.MatchStrings(l.matcher, lang)
		tag = l.supported[idx]
	}
	return titles[tag][kind]
}
