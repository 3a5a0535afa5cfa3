package core

// sniff.go chooses the field delimiter from a bounded text sample. The
// primary heuristic looks for a candidate whose per-line occurrence count is
// identical and non-zero across the sampled lines; when no candidate is
// consistent, raw occurrence counting decides, with comma winning ties.
// Sniffing is total: it never fails and defaults to comma.

import "strings"

const (
	sniffSampleSize = 10000
	sniffMaxLines   = 20
)

var candidateDelimiters = []rune{',', ';', '\t'}

// SniffDelimiter returns the most likely delimiter for the given text.
func SniffDelimiter(text string) rune {
	sample := text
	truncated := false
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
		truncated = true
	}

	if d, ok := sniffConsistent(sample, truncated); ok {
		return d
	}

	// Fallback: highest raw occurrence count. Comma is first in the
	// candidate list, so it wins ties and the all-zero case.
	best := ','
	bestCount := -1
	for _, d := range candidateDelimiters {
		if c := strings.Count(sample, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

// sniffConsistent looks for a delimiter appearing the same non-zero number
// of times on every sampled line. Among consistent candidates the highest
// per-line count wins; candidate order breaks ties.
func sniffConsistent(sample string, truncated bool) (rune, bool) {
	raw := strings.Split(strings.ReplaceAll(sample, "\r\n", "\n"), "\n")
	if truncated && len(raw) > 0 {
		// The sample may have been cut mid-row; drop the partial line.
		raw = raw[:len(raw)-1]
	}

	lines := make([]string, 0, sniffMaxLines)
	for _, ln := range raw {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		lines = append(lines, ln)
		if len(lines) == sniffMaxLines {
			break
		}
	}
	if len(lines) == 0 {
		return 0, false
	}

	var best rune
	bestCount := 0
	for _, d := range candidateDelimiters {
		per := strings.Count(lines[0], string(d))
		if per == 0 {
			continue
		}
		consistent := true
		for _, ln := range lines[1:] {
			if strings.Count(ln, string(d)) != per {
				consistent = false
				break
			}
		}
		if consistent && per > bestCount {
			best, bestCount = d, per
		}
	}
	if bestCount == 0 {
		return 0, false
	}
	return best, true
}
