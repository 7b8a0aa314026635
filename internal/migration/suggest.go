package migration

import (
	"strings"
	"unicode"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
)

// Suggestion pairs a source category with the destination category of the
// same name, when there is one.
type Suggestion struct {
	SourceID        string
	SourceName      string
	DestinationID   string // a placeholder when Matched is false
	DestinationName string
	Matched         bool
}

// SuggestMapping matches source categories to destination categories by
// name, ignoring case and surrounding space. Unmatched categories get a
// placeholder derived from their name. When the destination has several
// categories with the same name the first one in tree order wins.
func SuggestMapping(source, destination []desk.FlatCategory) []Suggestion {
	byName := make(map[string]desk.FlatCategory, len(destination))
	for _, c := range destination {
		key := normalizeName(c.Name)
		if _, seen := byName[key]; !seen {
			byName[key] = c
		}
	}

	suggestions := make([]Suggestion, 0, len(source))
	for _, c := range source {
		s := Suggestion{SourceID: c.ID, SourceName: c.Name}
		if match, ok := byName[normalizeName(c.Name)]; ok {
			s.DestinationID = match.ID
			s.DestinationName = match.Name
			s.Matched = true
		} else {
			s.DestinationID = PlaceholderFor(c.Name)
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}

// Table turns suggestions into a category table ready for NewCategoryMapper
func Table(suggestions []Suggestion) CategoryTable {
	table := make(CategoryTable, len(suggestions))
	for _, s := range suggestions {
		table[s.SourceID] = s.DestinationID
	}
	return table
}

// PlaceholderFor derives a placeholder id from a category name, e.g.
// "Schedule/Fares" becomes PLACEHOLDER_SCHEDULE_FARES.
func PlaceholderFor(name string) string {
	var b strings.Builder
	b.WriteString(PlaceholderPrefix)
	gap := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if gap && b.Len() > len(PlaceholderPrefix) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToUpper(r))
			gap = false
			continue
		}
		gap = true
	}
	if b.Len() == len(PlaceholderPrefix) {
		b.WriteString("UNNAMED")
	}
	return b.String()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
