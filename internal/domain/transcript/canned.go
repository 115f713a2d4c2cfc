package transcript

import (
	"regexp"
	"strings"
)

// Lang is the heuristically detected utterance language.
type Lang string

const (
	LangEnglish    Lang = "en"
	LangPortuguese Lang = "pt"
)

// CannedCategory tags a trivial social utterance.
type CannedCategory int

const (
	CannedNone CannedCategory = iota
	CannedGreeting
	CannedThanks
	CannedFarewell
	CannedHowAreYou
)

const trailer = `[!.\s🙏😊😄🙂]*`

var (
	idiomaTagRe = regexp.MustCompile(`(?i)\bIDIOMA\s*:\s*([A-Za-z_-]+)\b`)

	greetOnlyRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|good\s+morning|good\s+afternoon|good\s+evening|` +
		`oi|ol[aá]|eae|ea[ií]|bom\s+dia|boa\s+tarde|boa\s+noite)\s*` + trailer + `$`)
	thanksOnlyRe = regexp.MustCompile(`(?i)^\s*(thanks|thank\s+you|thx|tks|valeu|obrigado|obrigada|brigad[ao])\s*` + trailer + `$`)
	byeOnlyRe    = regexp.MustCompile(`(?i)^\s*(bye|goodbye|see\s+you|cya|see\s+ya|tchau|flw|até\s+mais|ate\s+mais|até)\s*` + trailer + `$`)
	howAreYouRe  = regexp.MustCompile(`(?i)^\s*(` +
		`how\s+are\s+you|how\s+are\s+u|how\s+r\s+u|how\s+ya\s+doing|how\s+is\s+it\s+going|` +
		`como\s+voce\s+ta|como\s+vc\s+ta|como\s+você\s+tá|como\s+você\s+está|como\s+vc\s+est[aá]|` +
		`tudo\s+bem|td\s+bem` +
		`)\s*` + trailer + `$`)
)

var ptMarkers = []string{"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "obrig", "valeu", "tchau", "até", "ate"}

// HintLang guesses the utterance language from an explicit IDIOMA tag,
// Portuguese markers, or diacritics. Defaults to English.
func HintLang(text string) Lang {
	if m := idiomaTagRe.FindStringSubmatch(text); m != nil {
		val := strings.ToLower(m[1])
		if strings.Contains(val, "pt") || strings.Contains(val, "port") {
			return LangPortuguese
		}
		if strings.Contains(val, "en") || strings.Contains(val, "eng") {
			return LangEnglish
		}
	}
	low := strings.ToLower(text)
	for _, marker := range ptMarkers {
		if strings.Contains(low, marker) {
			return LangPortuguese
		}
	}
	if strings.ContainsAny(low, "ãõáàâéêíóôúç") {
		return LangPortuguese
	}
	return LangEnglish
}

// Categorize classifies text against the whole-string canned taxonomies.
func Categorize(text string) CannedCategory {
	switch {
	case greetOnlyRe.MatchString(text):
		return CannedGreeting
	case howAreYouRe.MatchString(text):
		return CannedHowAreYou
	case thanksOnlyRe.MatchString(text):
		return CannedThanks
	case byeOnlyRe.MatchString(text):
		return CannedFarewell
	default:
		return CannedNone
	}
}

// CannedReply returns a fixed short reply for trivial social utterances, or
// "" when the text needs real generation. warm selects the affirmative tone;
// false gives the firm/neutral variant.
func CannedReply(author, text string, warm bool) string {
	category := Categorize(text)
	if category == CannedNone {
		return ""
	}

	a := NormalizeAuthor(author)
	lang := HintLang(text)

	switch category {
	case CannedGreeting, CannedHowAreYou:
		if lang == LangPortuguese {
			if warm {
				return a + ", oi! Estou bem, obrigado."
			}
			return a + ", oi. Estou bem."
		}
		if warm {
			return a + ", hi! I'm doing well, thanks."
		}
		return a + ", hi. I'm doing well."

	case CannedThanks:
		if lang == LangPortuguese {
			if warm {
				return a + ", de nada. Estou à disposição."
			}
			return a + ", de nada."
		}
		if warm {
			return a + ", you're welcome. Happy to help."
		}
		return a + ", you're welcome."

	case CannedFarewell:
		if lang == LangPortuguese {
			if warm {
				return a + ", fechado. Até mais."
			}
			return a + ", certo. Até."
		}
		if warm {
			return a + ", sounds good. Talk soon."
		}
		return a + ", okay. Take care."
	}
	return ""
}
