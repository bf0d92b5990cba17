package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/sells-group/filing-monitor/internal/config"
)

// garblePattern matches the Unicode replacement char, NUL, and non-printable
// control characters that indicate broken font mappings or binary noise.
var garblePattern = regexp.MustCompile("[�\x00-\x08\x0b\x0c\x0e-\x1f]")

// syntaxPattern strips markdown syntax and whitespace so the character count
// reflects meaningful content rather than formatting.
var syntaxPattern = regexp.MustCompile(`[#|*_\-\s]`)

// MeaningfulChars counts characters excluding whitespace and markdown syntax.
func MeaningfulChars(text string) int {
	return len(syntaxPattern.ReplaceAllString(text, ""))
}

// Validate checks whether candidate text from a strategy is usable. A nil
// return means the text passes; otherwise the error describes the first
// failing check. OCR output is held to looser thresholds and skips the
// repetition check, which only catches font-mapping artifacts.
func Validate(text string, pageCount int, cfg config.ExtractionConfig, ocr bool) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty output")
	}

	floor := cfg.MinChars
	perPage := cfg.MinCharsPerPage
	garbleMax := cfg.GarbleRatio
	if ocr {
		floor = cfg.MinCharsOCR
		perPage = cfg.MinCharsPerPageOCR
		garbleMax = cfg.GarbleRatioOCR
	}

	minChars := floor
	if byPages := pageCount * perPage; byPages > minChars {
		minChars = byPages
	}
	chars := MeaningfulChars(text)
	if chars < minChars {
		return fmt.Errorf("insufficient content: %d chars < %d minimum (%d pages)", chars, minChars, pageCount)
	}

	garbled := len(garblePattern.FindAllString(text, -1))
	if ratio := float64(garbled) / float64(len(text)); ratio > garbleMax {
		return fmt.Errorf("garble ratio %.3f exceeds %.3f (%d garbled chars)", ratio, garbleMax, garbled)
	}

	if ratio := wordLikeRatio(text); ratio < cfg.MinWordRatio {
		return fmt.Errorf("word-like token ratio %.2f below %.2f", ratio, cfg.MinWordRatio)
	}

	if !ocr {
		if trigram, count := dominantTrigram(text); count > repetitionLimit {
			return fmt.Errorf("excessive repetition: trigram %q appears %d times", trigram, count)
		}
	}

	return nil
}

// repetitionLimit is the per-trigram occurrence cap within the sampled
// window. Natural English trigrams like "the" peak well below it; broken
// font mappings repeat a sequence hundreds of times.
const repetitionLimit = 200

const repetitionSample = 10000

// dominantTrigram returns the most frequent non-whitespace trigram in the
// first repetitionSample characters and its count.
func dominantTrigram(text string) (string, int) {
	sample := text
	if len(sample) > repetitionSample {
		sample = sample[:repetitionSample]
	}
	if len(sample) < 3 {
		return "", 0
	}

	counts := make(map[string]int)
	for i := 0; i+3 <= len(sample); i++ {
		tri := sample[i : i+3]
		if strings.ContainsAny(tri, " \t\n\r") {
			continue
		}
		counts[tri]++
	}

	var best string
	var bestCount int
	for tri, n := range counts {
		if n > bestCount {
			best, bestCount = tri, n
		}
	}
	return best, bestCount
}

// wordLikeRatio returns the fraction of whitespace-separated tokens that
// look like words: at least two runes, mostly letters or digits. Guards
// against binary noise that survives the garble check.
func wordLikeRatio(text string) float64 {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return 0
	}

	wordlike := 0
	for _, tok := range tokens {
		if isWordLike(tok) {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(tokens))
}

func isWordLike(token string) bool {
	runes := []rune(token)
	if len(runes) < 2 {
		// Single-rune tokens count when alphanumeric ("a", "I", "5").
		return len(runes) == 1 && (unicode.IsLetter(runes[0]) || unicode.IsDigit(runes[0]))
	}
	alnum := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	return float64(alnum)/float64(len(runes)) >= 0.6
}
