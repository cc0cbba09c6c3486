package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	quarterRe = regexp.MustCompile(`(?i)\bQ([1-4])\s*[-_]?\s*(\d{4})\b`)
	annualRe  = regexp.MustCompile(`(?i)\b(?:FY|Annual)\s*[-_]?\s*(\d{4})\b`)
)

// PeriodFromFilename infers a reporting period from a filing's filename.
// "amzn_Q3_2025.pdf" yields "Q3-2025"; "FY2024-report.pdf" yields "FY-2024".
// Filenames carrying no recognizable period return an error rather than a
// guess; the period is a filter key and a wrong one hides the document.
func PeriodFromFilename(filename string) (string, error) {
	base := filepath.Base(filename)

	if m := quarterRe.FindStringSubmatch(base); m != nil {
		return fmt.Sprintf("Q%s-%s", m[1], m[2]), nil
	}
	if m := annualRe.FindStringSubmatch(base); m != nil {
		return "FY-" + m[1], nil
	}
	return "", fmt.Errorf("no period found in filename %q", base)
}

// DocIDFor builds the document id from ticker, period and filename stem.
// Stems are lowercased with path-hostile characters replaced so the id is
// safe as a key fragment.
func DocIDFor(ticker, period, filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.ToLower(stem)
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, stem)
	stem = strings.Trim(stem, "-")
	return strings.ToLower(ticker) + "_" + period + "_" + stem
}
