package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
)

func mixedPage() desk.ArticlePage {
	items := []desk.Article{
		{ID: "A1", Title: "One", CategoryID: "C-SJRRC-WIFI", DepartmentID: "DEPT-SRC"},
		{ID: "B1", Title: "Other dept", CategoryID: "C-SJRRC-WIFI", DepartmentID: "DEPT-DST"},
		{ID: "A2", Title: "Two", CategoryID: "C-SJRRC-WIFI", DepartmentID: "DEPT-SRC"},
		{ID: "A3", Title: "Three", CategoryID: "C-UNKNOWN", DepartmentID: "DEPT-SRC"},
	}
	return desk.ArticlePage{Items: items, Count: len(items)}
}

func stubGets(store *mockStore, articles []desk.Article) {
	for _, a := range articles {
		store.On("GetArticle", mock.Anything, a.ID).Return(a, nil)
	}
}

func TestMigrateAllFiltersByDepartment(t *testing.T) {
	store := new(mockStore)
	store.On("ListArticles", mock.Anything, 100, 1).Return(mixedPage(), nil).Once()
	stubGets(store, mixedPage().Items)

	m := newTestMigrator(t, store, nil, nil)
	report, err := m.MigrateAll(context.Background(), NewPager(store), BulkOptions{
		SourceDepartmentID:      "DEPT-SRC",
		DestinationDepartmentID: "DEPT-DST",
		DryRun:                  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Listed)
	assert.Equal(t, 3, report.Eligible)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "A1", report.Results[0].ArticleID)
	assert.Equal(t, "A2", report.Results[1].ArticleID)
	assert.Equal(t, "A3", report.Results[2].ArticleID)

	counts := report.Counts()
	assert.Equal(t, 2, counts[StatusDryRun])
	assert.Equal(t, 1, counts[StatusFailed])
	store.AssertNotCalled(t, "GetArticle", mock.Anything, "B1")
	store.AssertNumberOfCalls(t, "CreateArticle", 0)
}

func TestMigrateAllSkipsLedgerSuccesses(t *testing.T) {
	store := new(mockStore)
	store.On("ListArticles", mock.Anything, 100, 1).Return(mixedPage(), nil).Once()
	stubGets(store, mixedPage().Items)
	store.On("CreateArticle", mock.Anything, mock.Anything).Return(desk.CreatedArticle{ID: "N2"}, nil)

	ledger := new(mockLedger)
	ledger.On("Succeeded", mock.Anything, "A1").Return(true, nil)
	ledger.On("Succeeded", mock.Anything, "A2").Return(false, nil)
	ledger.On("Succeeded", mock.Anything, "A3").Return(false, nil)
	ledger.On("Record", mock.Anything, mock.Anything).Return(nil)

	m := newTestMigrator(t, store, ledger, nil)
	report, err := m.MigrateAll(context.Background(), NewPager(store), BulkOptions{
		SourceDepartmentID:      "DEPT-SRC",
		DestinationDepartmentID: "DEPT-DST",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A1"}, report.Skipped)
	require.Len(t, report.Results, 2)
	assert.Equal(t, StatusSuccess, report.Results[0].Status)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	store.AssertNotCalled(t, "GetArticle", mock.Anything, "A1")
	ledger.AssertNumberOfCalls(t, "Record", 2)
	assert.Len(t, m.Log(), 2)
}

func TestMigrateAllAbortsOnAuthFailure(t *testing.T) {
	store := new(mockStore)
	store.On("ListArticles", mock.Anything, 100, 1).Return(mixedPage(), nil).Once()
	store.On("GetArticle", mock.Anything, "A1").Return(mixedPage().Items[0], nil)
	store.On("GetArticle", mock.Anything, "A2").
		Return(desk.Article{}, apperrors.New(apperrors.KindAuth, "refresh token revoked"))

	m := newTestMigrator(t, store, nil, nil)
	report, err := m.MigrateAll(context.Background(), NewPager(store), BulkOptions{
		SourceDepartmentID:      "DEPT-SRC",
		DestinationDepartmentID: "DEPT-DST",
		DryRun:                  true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindAuth))

	require.Len(t, report.Results, 2)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Equal(t, apperrors.KindAuth, report.Results[1].Cause)
	store.AssertNotCalled(t, "GetArticle", mock.Anything, "A3")
}

func TestMigrateAllMigratesPartialListing(t *testing.T) {
	store := new(mockStore)
	first := page(1, 2, "DEPT-SRC")
	store.On("ListArticles", mock.Anything, 2, 1).Return(first, nil).Once()
	store.On("ListArticles", mock.Anything, 2, 3).
		Return(desk.ArticlePage{}, apperrors.New(apperrors.KindTransport, "status 502")).Once()
	stubGets(store, first.Items)

	m := newTestMigrator(t, store, nil, nil)
	report, err := m.MigrateAll(context.Background(), NewPager(store, WithPageSize(2)), BulkOptions{
		DestinationDepartmentID: "DEPT-DST",
		DryRun:                  true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindTransport))
	assert.Contains(t, err.Error(), "incomplete after 2 articles")

	assert.Equal(t, 2, report.Listed)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.Counts()[StatusDryRun])
}

func TestMigrateAllStopsWhenListingAuthFails(t *testing.T) {
	store := new(mockStore)
	store.On("ListArticles", mock.Anything, 100, 1).
		Return(desk.ArticlePage{}, apperrors.New(apperrors.KindAuth, "invalid_code")).Once()

	m := newTestMigrator(t, store, nil, nil)
	report, err := m.MigrateAll(context.Background(), NewPager(store), BulkOptions{DestinationDepartmentID: "DEPT-DST"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindAuth))
	assert.Empty(t, report.Results)
	store.AssertNumberOfCalls(t, "GetArticle", 0)
}

func TestMigrateAllLimit(t *testing.T) {
	store := new(mockStore)
	store.On("ListArticles", mock.Anything, 100, 1).Return(mixedPage(), nil).Once()
	stubGets(store, mixedPage().Items)

	m := newTestMigrator(t, store, nil, nil)
	report, err := m.MigrateAll(context.Background(), NewPager(store), BulkOptions{
		SourceDepartmentID:      "DEPT-SRC",
		DestinationDepartmentID: "DEPT-DST",
		DryRun:                  true,
		Limit:                   1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Eligible)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "A1", report.Results[0].ArticleID)
}
