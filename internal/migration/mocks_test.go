package migration

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetArticle(ctx context.Context, id string) (desk.Article, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(desk.Article), args.Error(1)
}

func (m *mockStore) ListArticles(ctx context.Context, limit, from int) (desk.ArticlePage, error) {
	args := m.Called(ctx, limit, from)
	return args.Get(0).(desk.ArticlePage), args.Error(1)
}

func (m *mockStore) CreateArticle(ctx context.Context, draft desk.ArticleDraft) (desk.CreatedArticle, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(desk.CreatedArticle), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Record(ctx context.Context, result MigrationResult) error {
	return m.Called(ctx, result).Error(0)
}

func (m *mockLedger) Succeeded(ctx context.Context, articleID string) (bool, error) {
	args := m.Called(ctx, articleID)
	return args.Bool(0), args.Error(1)
}

// getterOnly hides every method but GetArticle
type getterOnly struct {
	ArticleGetter
}

func page(from, n int, department string) desk.ArticlePage {
	items := make([]desk.Article, n)
	for i := range items {
		items[i] = desk.Article{
			ID:           fmt.Sprintf("A%d", from+i),
			Title:        fmt.Sprintf("Article %d", from+i),
			CategoryID:   "C-SJRRC-WIFI",
			DepartmentID: department,
		}
	}
	return desk.ArticlePage{Items: items, Count: n}
}

func strPtr(s string) *string { return &s }
