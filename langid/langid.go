// Package langid identifies the languages present in extracted text.
//
// Detection runs per chunk (line, falling back to sentence-sized slices) so
// mixed-language documents report every language with its share of the text,
// not just the statistically dominant one.
package langid

import (
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Candidate is one detected language with its share of the input.
type Candidate struct {
	Language       string  `json:"language"`
	Code           string  `json:"language_code"`
	Confidence     float64 `json:"confidence"`
	TextPercentage float64 `json:"text_percentage"`
}

// Result holds the ranked candidates. Primary is Candidates[0].
type Result struct {
	Candidates []Candidate
	Primary    Candidate
}

// Config configures the detector.
type Config struct {
	// TopK bounds the number of returned candidates (default: 2).
	TopK int

	// MinTextLen is the minimum number of non-space characters required
	// for detection (default: 8).
	MinTextLen int
}

func (c *Config) defaults() {
	if c.TopK <= 0 {
		c.TopK = 2
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = 8
	}
}

// Detector identifies languages in text.
type Detector struct {
	cfg Config
}

// New creates a Detector.
func New(cfg Config) *Detector {
	cfg.defaults()
	return &Detector{cfg: cfg}
}

// fallback is returned when text is detectable in length but no chunk
// yields a recognizable language.
var fallback = Candidate{Language: "English", Code: "en", Confidence: 0.5, TextPercentage: 100}

// Detect ranks the languages found in text by confidence. Text below the
// configured minimum length returns InsufficientTextError.
func (d *Detector) Detect(text string) (*Result, error) {
	chars := countNonSpace(text)
	if chars < d.cfg.MinTextLen {
		return nil, &InsufficientTextError{Chars: chars, Min: d.cfg.MinTextLen}
	}

	type bucket struct {
		language string
		chars    int
		confSum  float64
		chunks   int
	}
	buckets := map[string]*bucket{}
	totalChars := 0

	for _, chunk := range chunks(text) {
		chunkChars := countNonSpace(chunk)
		if chunkChars == 0 {
			continue
		}
		info := whatlanggo.Detect(chunk)
		code := info.Lang.Iso6391()
		if code == "" {
			continue
		}
		totalChars += chunkChars
		b, ok := buckets[code]
		if !ok {
			b = &bucket{language: info.Lang.String()}
			buckets[code] = b
		}
		b.chars += chunkChars
		b.confSum += info.Confidence
		b.chunks++
	}

	if len(buckets) == 0 || totalChars == 0 {
		res := &Result{Candidates: []Candidate{fallback}, Primary: fallback}
		return res, nil
	}

	candidates := make([]Candidate, 0, len(buckets))
	for code, b := range buckets {
		candidates = append(candidates, Candidate{
			Language:       b.language,
			Code:           code,
			Confidence:     b.confSum / float64(b.chunks),
			TextPercentage: 100 * float64(b.chars) / float64(totalChars),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		if candidates[i].TextPercentage != candidates[j].TextPercentage {
			return candidates[i].TextPercentage > candidates[j].TextPercentage
		}
		return candidates[i].Code < candidates[j].Code
	})
	if len(candidates) > d.cfg.TopK {
		candidates = candidates[:d.cfg.TopK]
	}

	return &Result{Candidates: candidates, Primary: candidates[0]}, nil
}

// chunks splits text into detection units: non-empty lines, with long
// lines split on sentence boundaries so a single line mixing languages
// still contributes to multiple buckets.
func chunks(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) <= 200 {
			out = append(out, line)
			continue
		}
		for _, sent := range splitSentences(line) {
			if sent != "" {
				out = append(out, sent)
			}
		}
	}
	return out
}

func splitSentences(line string) []string {
	var out []string
	start := 0
	for i, r := range line {
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(line[start : i+1])
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(line[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func countNonSpace(text string) int {
	n := 0
	for _, r := range text {
		if !strings.ContainsRune(" \t\n\r\f\v", r) {
			n++
		}
	}
	return n
}
