package migration

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
)

func newTestTransformer(t *testing.T) *Transformer {
	t.Helper()
	mapper, err := NewCategoryMapper(CategoryTable{
		"C-SJRRC-WIFI":  "C-ACE-WIFI",
		"C-SJRRC-FARES": "PLACEHOLDER_SCHEDULE_FARES",
	})
	require.NoError(t, err)
	return NewTransformer(mapper)
}

func TestTransformCopiesContent(t *testing.T) {
	tr := newTestTransformer(t)
	source := desk.Article{
		ID:           "A1",
		Title:        "Wi-Fi Help",
		Answer:       "<p>Join <b>ACE-Guest</b> &amp; accept the terms.</p>",
		CategoryID:   "C-SJRRC-WIFI",
		DepartmentID: "DEPT-SRC",
		Status:       strPtr("PUBLISHED"),
		Tags:         []string{"wifi", "onboard"},
		Summary:      "How to connect",
	}

	got, err := tr.Transform(source, "DEPT-DST")
	require.NoError(t, err)

	assert.Equal(t, source.Title, got.Title)
	assert.Equal(t, source.Answer, got.Answer)
	assert.Equal(t, "C-ACE-WIFI", got.CategoryID)
	assert.Equal(t, "DEPT-DST", got.DepartmentID)
	require.NotNil(t, got.Status)
	assert.Equal(t, "PUBLISHED", *got.Status)
	assert.Equal(t, []string{"wifi", "onboard"}, got.Tags)
	assert.Equal(t, "How to connect", got.Summary)

	// the payload does not share memory with the source
	got.Tags[0] = "changed"
	*got.Status = "DRAFT"
	assert.Equal(t, "wifi", source.Tags[0])
	assert.Equal(t, "PUBLISHED", *source.Status)
}

func TestTransformOmitsAbsentOptionalFields(t *testing.T) {
	tr := newTestTransformer(t)

	got, err := tr.Transform(desk.Article{
		ID:         "A2",
		Title:      "No extras",
		Answer:     "",
		CategoryID: "C-SJRRC-WIFI",
		Tags:       []string{},
	}, "DEPT-DST")
	require.NoError(t, err)

	body, err := json.Marshal(got)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.NotContains(t, fields, "tags")
	assert.NotContains(t, fields, "status")
	assert.NotContains(t, fields, "summary")
	assert.Contains(t, fields, "answer")
	assert.Equal(t, "C-ACE-WIFI", fields["categoryId"])
}

func TestTransformCategoryFailures(t *testing.T) {
	tr := newTestTransformer(t)

	tests := []struct {
		name     string
		category string
		cause    apperrors.Kind
	}{
		{"unmapped", "C-OTHER", apperrors.KindUnmappedCategory},
		{"placeholder", "C-SJRRC-FARES", apperrors.KindPlaceholderMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.Transform(desk.Article{ID: "A1", Title: "T", CategoryID: tt.category}, "DEPT-DST")
			require.Error(t, err)
			assert.Equal(t, apperrors.KindCategoryResolutionFailed, apperrors.KindOf(err))
			assert.Equal(t, tt.cause, apperrors.RootKind(err))
			assert.Empty(t, got.CategoryID)
		})
	}
}

func TestTransformKeepsEmptyTitle(t *testing.T) {
	tr := newTestTransformer(t)

	got, err := tr.Transform(desk.Article{ID: "A1", Answer: "<p>x</p>", CategoryID: "C-SJRRC-WIFI"}, "DEPT-DST")
	require.NoError(t, err)
	assert.Empty(t, got.Title)
	assert.Equal(t, "<p>x</p>", got.Answer)
	assert.Equal(t, "C-ACE-WIFI", got.CategoryID)
	assert.Equal(t, "DEPT-DST", got.DepartmentID)
}

func TestPayloadRequiresResolvedCategory(t *testing.T) {
	tr := newTestTransformer(t)

	for _, category := range []string{"", "PLACEHOLDER_SCHEDULE_FARES"} {
		err := tr.validate.Struct(TransformedArticle{Title: "T", CategoryID: category, DepartmentID: "DEPT-DST"})
		require.Error(t, err, category)
		assert.Contains(t, err.Error(), "categoryId")
	}

	assert.NoError(t, tr.validate.Struct(TransformedArticle{CategoryID: "C-ACE-WIFI"}))
}
