package migration

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
)

// Transformer turns source articles into creation payloads for the
// destination department.
type Transformer struct {
	mapper   *CategoryMapper
	validate *validator.Validate
}

// NewTransformer creates a transformer resolving categories with mapper
func NewTransformer(mapper *CategoryMapper) *Transformer {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("resolved", func(fl validator.FieldLevel) bool {
		return !IsPlaceholder(fl.Field().String())
	})

	return &Transformer{mapper: mapper, validate: v}
}

// Transform builds the payload for article in destinationDepartmentID.
// Title and answer are copied byte for byte, even when empty; optional
// fields are carried only when the source has them. The only failure is
// CategoryResolutionFailed.
func (t *Transformer) Transform(article desk.Article, destinationDepartmentID string) (TransformedArticle, error) {
	categoryID, err := t.mapper.Resolve(article.CategoryID)
	if err != nil {
		return TransformedArticle{}, apperrors.Wrap(apperrors.KindCategoryResolutionFailed, err,
			fmt.Sprintf("resolving category for article %s", article.ID))
	}

	draft := TransformedArticle{
		Title:        article.Title,
		Answer:       article.Answer,
		CategoryID:   categoryID,
		DepartmentID: destinationDepartmentID,
	}

	if article.Status != nil {
		status := *article.Status
		draft.Status = &status
	}
	if len(article.Tags) > 0 {
		draft.Tags = append([]string(nil), article.Tags...)
	}
	if article.Summary != "" {
		draft.Summary = article.Summary
	}

	if err := t.validate.Struct(draft); err != nil {
		return TransformedArticle{}, apperrors.Wrap(apperrors.KindCategoryResolutionFailed, err,
			fmt.Sprintf("payload for article %s has no resolved category", article.ID))
	}
	return draft, nil
}
