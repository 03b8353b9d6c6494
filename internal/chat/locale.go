package chat

import "strings"

// Locale selects the language of user-facing failure messages.
type Locale string

const (
	LocaleIndonesian Locale = "id"
	LocaleEnglish    Locale = "en"
)

// Messages are the texts shown in place of an answer.
type Messages struct {
	GenericFailure string
	NoProvider     string
}

var catalog = map[Locale]Messages{
	LocaleIndonesian: {
		GenericFailure: "Maaf, terjadi kesalahan saat memproses permintaan Anda.",
		NoProvider:     "Tidak ada model AI yang tersedia. Silakan coba lagi nanti.",
	},
	LocaleEnglish: {
		GenericFailure: "Sorry, something went wrong while processing your request.",
		NoProvider:     "No AI model is available right now. Please try again later.",
	},
}

// ParseLocale falls back to Indonesian for anything it does not know.
func ParseLocale(s string) Locale {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[l]; ok {
		return l
	}
	return LocaleIndonesian
}

// Messages returns the message set for l.
func (l Locale) Messages() Messages {
	if m, ok := catalog[l]; ok {
		return m
	}
	return catalog[LocaleIndonesian]
}
