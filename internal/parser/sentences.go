package parser

import (
	"fmt"
	"strings"
)

// splitSentences breaks text into sentences at `.`/`!`/`?` followed by
// whitespace, and at newlines. Embedded URLs are shielded from splitting,
// and common abbreviation shapes ("e.g.", "Dr.") do not end a sentence.
// Fragments of three characters or fewer are discarded.
func splitSentences(text string) []string {
	protected, placeholders := protectURLs(text)

	var sentences []string
	for _, line := range strings.Split(protected, "\n") {
		sentences = append(sentences, splitLine(line)...)
	}

	cleaned := make([]string, 0, len(sentences))
	for _, s := range sentences {
		for ph, url := range placeholders {
			s = strings.ReplaceAll(s, ph, url)
		}
		s = strings.TrimSpace(s)
		if len(s) > 3 {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// protectURLs swaps URLs for placeholders so their dots survive splitting.
func protectURLs(text string) (string, map[string]string) {
	urls := urlPattern.FindAllString(text, -1)
	if len(urls) == 0 {
		return text, nil
	}
	placeholders := make(map[string]string, len(urls))
	for i, url := range urls {
		ph := fmt.Sprintf("__URL_%d__", i)
		placeholders[ph] = url
		text = strings.Replace(text, url, ph, 1)
	}
	return text, placeholders
}

// splitLine splits a single line at terminal punctuation followed by
// whitespace.
func splitLine(line string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(line); i++ {
		if !isTerminal(line[i]) {
			continue
		}
		// Consume a run of terminal punctuation ("?!", "...").
		end := i
		for end+1 < len(line) && isTerminal(line[end+1]) {
			end++
		}
		if end+1 >= len(line) {
			break
		}
		next := line[end+1]
		if next != ' ' && next != '\t' {
			i = end
			continue
		}
		if isAbbreviation(line, i) {
			i = end
			continue
		}
		parts = append(parts, line[start:end+1])
		i = end + 1
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		start = i
		i--
	}
	if start < len(line) {
		parts = append(parts, line[start:])
	}
	return parts
}

// isAbbreviation guards the dot of dotted abbreviations ("e.g.", "U.S.")
// and two-letter honorifics ("Dr.", "Mr.") from being a sentence boundary.
func isAbbreviation(line string, i int) bool {
	if line[i] != '.' {
		return false
	}
	if i >= 3 && isWordByte(line[i-1]) && line[i-2] == '.' && isWordByte(line[i-3]) {
		return true
	}
	if i >= 2 && isUpperByte(line[i-2]) && isLowerByte(line[i-1]) {
		if i == 2 || !isWordByte(line[i-3]) {
			return true
		}
	}
	return false
}

func isTerminal(c byte) bool { return c == '.' || c == '!' || c == '?' }

func isWordByte(c byte) bool {
	return isUpperByte(c) || isLowerByte(c) || (c >= '0' && c <= '9') || c == '_'
}

func isUpperByte(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLowerByte(c byte) bool { return c >= 'a' && c <= 'z' }
