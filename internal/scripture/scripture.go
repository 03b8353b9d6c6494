// Package scripture fetches chapters and partition content from the public
// alquran.cloud API. The relay core does not depend on it.
package scripture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"quran-ai/internal/config"
)

// ErrInvalidPartition indicates an unknown partition kind or out-of-range number.
var ErrInvalidPartition = errors.New("invalid partition")

// ErrUpstream indicates the scripture API answered with a failure.
var ErrUpstream = errors.New("scripture api error")

// Kind is one of the four partition schemes.
type Kind string

const (
	KindSurah       Kind = "surah"
	KindJuz         Kind = "juz"
	KindHizbQuarter Kind = "hizbQuarter"
	KindRuku        Kind = "ruku"
)

var kindMax = map[Kind]int{
	KindSurah:       114,
	KindJuz:         30,
	KindHizbQuarter: 240,
	KindRuku:        556,
}

// ParseKind accepts the API's spelling of a partition scheme.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.TrimSpace(s))
	_, ok := kindMax[k]
	return k, ok
}

// Max is the highest valid number for the kind.
func (k Kind) Max() int {
	return kindMax[k]
}

// Chapter is a surah summary.
type Chapter struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	NameArabic             string `json:"nameArabic"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
	RevelationType         string `json:"revelationType"`
}

// Verse is a single ayah. Translation is set by FetchBilingual.
type Verse struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	Translation   string `json:"translation,omitempty"`
	NumberInSurah int    `json:"numberInSurah"`
	Juz           int    `json:"juz"`
	Manzil        int    `json:"manzil"`
	Page          int    `json:"page"`
	Ruku          int    `json:"ruku"`
	HizbQuarter   int    `json:"hizbQuarter"`
	Sajda         Sajda  `json:"sajda"`
}

// Sajda is false, or an object describing the prostration, upstream.
type Sajda bool

func (s *Sajda) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*s = Sajda(!(bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null"))))
	return nil
}

// Partition is the content of one partition key.
type Partition struct {
	Kind       Kind    `json:"type"`
	Number     int     `json:"number"`
	Name       string  `json:"name"`
	NameArabic string  `json:"nameArabic"`
	Edition    string  `json:"edition,omitempty"`
	Verses     []Verse `json:"ayahs"`
}

// Client talks to the scripture API.
type Client struct {
	baseURL     string
	client      *http.Client
	source      string
	translation string

	mu       sync.Mutex
	chapters []Chapter
}

// New constructs a scripture client.
func New(cfg config.ScriptureConfig, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		client:      client,
		source:      cfg.SourceEdition,
		translation: cfg.TranslationEdition,
	}
}

// ListChapters returns all chapters. The list never changes, so the first
// successful answer is kept.
func (c *Client) ListChapters(ctx context.Context) ([]Chapter, error) {
	c.mu.Lock()
	cached := c.chapters
	c.mu.Unlock()
	if cached != nil {
		return cloneChapters(cached), nil
	}

	var raw []struct {
		Number                 int    `json:"number"`
		Name                   string `json:"name"`
		EnglishName            string `json:"englishName"`
		EnglishNameTranslation string `json:"englishNameTranslation"`
		NumberOfAyahs          int    `json:"numberOfAyahs"`
		RevelationType         string `json:"revelationType"`
	}
	if err := c.get(ctx, "/surah", &raw); err != nil {
		return nil, err
	}

	chapters := make([]Chapter, 0, len(raw))
	for _, s := range raw {
		chapters = append(chapters, Chapter{
			Number:                 s.Number,
			Name:                   s.EnglishName,
			NameArabic:             s.Name,
			EnglishNameTranslation: s.EnglishNameTranslation,
			NumberOfAyahs:          s.NumberOfAyahs,
			RevelationType:         revelationType(s.RevelationType),
		})
	}

	c.mu.Lock()
	c.chapters = chapters
	c.mu.Unlock()
	return cloneChapters(chapters), nil
}

// Chapter looks up a single chapter by number.
func (c *Client) Chapter(ctx context.Context, number int) (Chapter, error) {
	if number < 1 || number > KindSurah.Max() {
		return Chapter{}, fmt.Errorf("%w: surah %d", ErrInvalidPartition, number)
	}
	chapters, err := c.ListChapters(ctx)
	if err != nil {
		return Chapter{}, err
	}
	for _, ch := range chapters {
		if ch.Number == number {
			return ch, nil
		}
	}
	return Chapter{}, fmt.Errorf("%w: surah %d not listed", ErrUpstream, number)
}

// FetchPartition returns the verses of one partition in a single edition.
func (c *Client) FetchPartition(ctx context.Context, kind Kind, number int, edition string) (*Partition, error) {
	if _, ok := kindMax[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPartition, kind)
	}
	if number < 1 || number > kind.Max() {
		return nil, fmt.Errorf("%w: %s number must be between 1 and %d", ErrInvalidPartition, kind, kind.Max())
	}
	if strings.TrimSpace(edition) == "" {
		return nil, fmt.Errorf("%w: edition is required", ErrInvalidPartition)
	}

	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/editions/%s", kind, number, edition), &raw); err != nil {
		return nil, err
	}

	// Surah lookups answer with a one-element array, the others with an object.
	var body struct {
		Number      int     `json:"number"`
		Name        string  `json:"name"`
		EnglishName string  `json:"englishName"`
		Ayahs       []Verse `json:"ayahs"`
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode %s %d: %w", kind, number, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty %s %d", ErrUpstream, kind, number)
		}
		trimmed = list[0]
	}
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, fmt.Errorf("decode %s %d: %w", kind, number, err)
	}

	p := &Partition{
		Kind:    kind,
		Number:  number,
		Edition: edition,
		Verses:  body.Ayahs,
	}
	if kind == KindSurah {
		p.Name = body.EnglishName
		p.NameArabic = body.Name
	} else {
		p.Name, p.NameArabic = syntheticNames(kind, number)
	}
	return p, nil
}

// FetchBilingual merges the source-script and translation editions verse by verse.
func (c *Client) FetchBilingual(ctx context.Context, kind Kind, number int) (*Partition, error) {
	source, err := c.FetchPartition(ctx, kind, number, c.source)
	if err != nil {
		return nil, err
	}
	translated, err := c.FetchPartition(ctx, kind, number, c.translation)
	if err != nil {
		return nil, err
	}

	if len(source.Verses) != len(translated.Verses) {
		slog.Warn("verse count mismatch between editions",
			"type", kind, "number", number,
			"source", len(source.Verses), "translation", len(translated.Verses))
	}
	for i := range source.Verses {
		if i < len(translated.Verses) {
			source.Verses[i].Translation = translated.Verses[i].Text
		} else {
			source.Verses[i].Translation = "Terjemahan tidak tersedia"
		}
	}
	source.Edition = ""
	return source, nil
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("construct request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("scripture request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Code   int             `json:"code"`
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read scripture response: %w", err)
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
		}
		return fmt.Errorf("decode scripture response: %w", err)
	}
	if resp.StatusCode >= 400 || (envelope.Code != 0 && envelope.Code >= 400) {
		var msg string
		_ = json.Unmarshal(envelope.Data, &msg)
		if msg == "" {
			msg = envelope.Status
		}
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("decode scripture data: %w", err)
	}
	return nil
}

func revelationType(s string) string {
	switch s {
	case "Meccan":
		return "Makkiyah"
	case "Medinan":
		return "Madaniyah"
	}
	return s
}

func syntheticNames(kind Kind, number int) (string, string) {
	switch kind {
	case KindJuz:
		return fmt.Sprintf("Juz %d", number), fmt.Sprintf("جزء %d", number)
	case KindHizbQuarter:
		return fmt.Sprintf("Hizb %d", number), fmt.Sprintf("حزب %d", number)
	case KindRuku:
		return fmt.Sprintf("Ruku %d", number), fmt.Sprintf("ركوع %d", number)
	}
	return string(kind), string(kind)
}

func cloneChapters(in []Chapter) []Chapter {
	out := make([]Chapter, len(in))
	copy(out, in)
	return out
}
