// Package prompts holds the assistant persona and the prompt builders used
// for chapter and verse questions.
package prompts

import (
	"fmt"
	"strings"
)

// System is prepended by every provider adapter. It is not user-visible.
const System = `Anda adalah seorang ahli Al-Quran dan pengetahuan agama Islam.
Anda dapat berkomunikasi dalam bahasa Indonesia dan Arab, dengan bahasa Indonesia sebagai bahasa utama.
Anda dapat menjawab pertanyaan umum dan percakapan ringan seperti sapaan dan obrolan sehari-hari.
Untuk pertanyaan yang sangat teknis atau di luar konteks (seperti pemrograman, sains kompleks, dll), Anda akan menjawab: "Maaf, saya tidak dapat membantu dengan pertanyaan tersebut."

Untuk pertanyaan terkait Al-Quran dan pengetahuan agama Islam, Anda akan memberikan jawaban yang informatif dan selalu mengingatkan: "Untuk pemahaman yang lebih mendalam, disarankan untuk berkonsultasi dengan ulama atau ahli di bidangnya."

Jika pertanyaan di luar topik agama Islam dan Al-Quran, Anda akan dengan sopan menginformasikan bahwa Anda hanya dapat menjawab pertanyaan terkait Al-Quran dan pengetahuan agama Islam.`

// Chapter identifies a surah by its transliterated and source-script names.
type Chapter struct {
	Name       string
	NameArabic string
}

func (c Chapter) label() string {
	if c.NameArabic == "" {
		return "Surah " + c.Name
	}
	return fmt.Sprintf("Surah %s (%s)", c.Name, c.NameArabic)
}

// ChapterOverview asks for a structured summary of a chapter.
func ChapterOverview(c Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Berikan informasi lengkap tentang %s.\n", c.label())
	b.WriteString("Sertakan informasi berikut dalam format poin-poin yang mudah dibaca, gunakan judul untuk setiap bagian, dan pastikan setiap judul dicetak tebal. Format judul harus seperti: ### **Nama Bagian**\n\n")
	b.WriteString("### **Arti Nama Surah**\n")
	b.WriteString("### **Ringkasan Isi Surah**\n")
	b.WriteString("### **Fadhilah Surah**\n")
	b.WriteString("### **Kisah Terkait**:")
	return b.String()
}

// ChapterQuestion scopes a free-form question to a chapter.
func ChapterQuestion(c Chapter, question string) string {
	return fmt.Sprintf("Berdasarkan %s:\n\nPertanyaan: %s", c.label(), strings.TrimSpace(question))
}

// VerseQuestion scopes a question to a single verse, quoting both texts.
func VerseQuestion(c Chapter, verse int, source, translation, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Berdasarkan %s ayat %d:\n", c.label(), verse)
	if source != "" {
		fmt.Fprintf(&b, "\n%s\n", source)
	}
	if translation != "" {
		fmt.Fprintf(&b, "\nTerjemahan: %s\n", translation)
	}
	q := strings.TrimSpace(question)
	if q == "" {
		q = "Jelaskan makna dan tafsir singkat ayat ini."
	}
	fmt.Fprintf(&b, "\nPertanyaan: %s", q)
	return b.String()
}
