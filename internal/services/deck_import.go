package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/codyseavey/magicgest/internal/models"
)

// DecklistLine is one parsed card line of a text decklist
type DecklistLine struct {
	Line     int
	Text     string
	Quantity int
	Name     string
	Category models.DeckCategory
}

var (
	// "4 Lightning Bolt", "4x Lightning Bolt"
	decklistQuantity = regexp.MustCompile(`^(\d+)x?\s+(.+)$`)
	// Arena style printing suffix: "Lightning Bolt (M10) 146"
	decklistPrinting = regexp.MustCompile(`\s+\([A-Za-z0-9]{2,6}\)(\s+\S+)?$`)
)

// ParseDecklist reads MTGO/Arena style text. Lines starting with "//" or "#"
// are comments. A "Sideboard" header or an "SB:" prefix moves cards to the
// sideboard; without any header, a blank line after the first card does.
func ParseDecklist(text string) ([]DecklistLine, []models.DeckImportError) {
	rawLines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	hasHeader := false
	for _, raw := range rawLines {
		if isSideboardHeader(strings.TrimSpace(raw)) {
			hasHeader = true
			break
		}
	}

	var (
		lines    []DecklistLine
		errs     []models.DeckImportError
		category = models.CategoryMainboard
		seenCard bool
	)
	for i, raw := range rawLines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			if !hasHeader && seenCard {
				category = models.CategorySideboard
			}
			continue
		case strings.HasPrefix(line, "//"), strings.HasPrefix(line, "#"):
			continue
		case isSideboardHeader(line):
			category = models.CategorySideboard
			continue
		case isMainboardHeader(line):
			category = models.CategoryMainboard
			continue
		}

		lineCategory := category
		if rest, ok := cutPrefixFold(line, "SB:"); ok {
			line = strings.TrimSpace(rest)
			lineCategory = models.CategorySideboard
		}

		quantity, name := 1, line
		if m := decklistQuantity.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				errs = append(errs, models.DeckImportError{Line: lineNo, Text: raw, Error: "invalid quantity"})
				continue
			}
			quantity, name = n, m[2]
		}
		name = strings.TrimSpace(decklistPrinting.ReplaceAllString(name, ""))
		if name == "" {
			errs = append(errs, models.DeckImportError{Line: lineNo, Text: raw, Error: "missing card name"})
			continue
		}

		seenCard = true
		lines = append(lines, DecklistLine{Line: lineNo, Text: raw, Quantity: quantity, Name: name, Category: lineCategory})
	}
	return lines, errs
}

func isSideboardHeader(line string) bool {
	l := strings.ToLower(strings.TrimSuffix(line, ":"))
	return l == "sideboard" || l == "sb"
}

func isMainboardHeader(line string) bool {
	l := strings.ToLower(strings.TrimSuffix(line, ":"))
	return l == "deck" || l == "mainboard" || l == "main"
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
