package migration

import (
	"sort"
	"strings"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
)

// PlaceholderPrefix marks a mapping whose destination category does not
// exist yet, e.g. PLACEHOLDER_SCHEDULE_FARES.
const PlaceholderPrefix = "PLACEHOLDER_"

// CategoryTable maps source category ids to destination category ids or
// placeholders.
type CategoryTable map[string]string

// IsPlaceholder reports whether id is an unresolved marker
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// CategoryMapper resolves source category ids against a fixed table.
// It is read-only after construction.
type CategoryMapper struct {
	table map[string]string
}

// NewCategoryMapper copies table, rejecting empty ids on either side
func NewCategoryMapper(table CategoryTable) (*CategoryMapper, error) {
	copied := make(map[string]string, len(table))
	for source, destination := range table {
		source = strings.TrimSpace(source)
		destination = strings.TrimSpace(destination)
		if source == "" {
			return nil, apperrors.NewValidation("category table has an empty source id")
		}
		if destination == "" {
			return nil, apperrors.Newf(apperrors.KindValidation,
				"category %s maps to an empty id; use a %s value until the destination exists", source, PlaceholderPrefix)
		}
		if _, dup := copied[source]; dup {
			return nil, apperrors.Newf(apperrors.KindValidation, "category %s is mapped twice", source)
		}
		copied[source] = destination
	}
	return &CategoryMapper{table: copied}, nil
}

// Resolve returns the destination id for sourceCategoryID
func (m *CategoryMapper) Resolve(sourceCategoryID string) (string, error) {
	destination, ok := m.table[sourceCategoryID]
	if !ok {
		return "", apperrors.Newf(apperrors.KindUnmappedCategory,
			"no mapping for category %s", sourceCategoryID)
	}
	if IsPlaceholder(destination) {
		return "", apperrors.Newf(apperrors.KindPlaceholderMapping,
			"category %s maps to %s; create the destination category and update the mapping", sourceCategoryID, destination)
	}
	return destination, nil
}

// Len returns the number of mapped source categories
func (m *CategoryMapper) Len() int {
	return len(m.table)
}

// Placeholders returns the sorted source ids that are still unresolved
func (m *CategoryMapper) Placeholders() []string {
	var ids []string
	for source, destination := range m.table {
		if IsPlaceholder(destination) {
			ids = append(ids, source)
		}
	}
	sort.Strings(ids)
	return ids
}
