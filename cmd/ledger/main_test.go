package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/ledger"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/migration"
)

func seededLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	ctx := context.Background()
	l, err := ledger.Open(ctx, ledger.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	for _, r := range []migration.MigrationResult{
		{RunID: "0f4c2a9e-run", ArticleID: "A1", Status: migration.StatusSuccess, NewArticleID: "N1"},
		{RunID: "0f4c2a9e-run", ArticleID: "A2", Status: migration.StatusFailed,
			ErrorKind: apperrors.KindCategoryResolutionFailed, Cause: apperrors.KindUnmappedCategory, Error: "no mapping"},
		{RunID: "0f4c2a9e-run", ArticleID: "A3", Status: migration.StatusFailed},
	} {
		require.NoError(t, l.Record(ctx, r))
	}
	return l
}

func TestListEntries(t *testing.T) {
	l := seededLedger(t)
	var out bytes.Buffer

	require.NoError(t, listEntries(context.Background(), l, &out, "failed"))
	text := out.String()
	assert.Contains(t, text, "[CATEGORY_RESOLUTION_FAILED/UNMAPPED_CATEGORY] no mapping")
	assert.Contains(t, text, "0f4c2a9e ")
	assert.NotContains(t, text, "N1")
	assert.Contains(t, text, "2 entries")
}

func TestForgetFailedConfirmed(t *testing.T) {
	l := seededLedger(t)
	var out bytes.Buffer

	err := forgetFailed(context.Background(), l, bufio.NewReader(strings.NewReader("maybe\ny\n")), &out, "A2")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Please enter y or n.")
	assert.Contains(t, out.String(), "Removed 1 failed entries")

	left, err := l.List(context.Background(), "failed")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "A3", left[0].ArticleID)
}

func TestForgetFailedDeclined(t *testing.T) {
	l := seededLedger(t)
	var out bytes.Buffer

	require.NoError(t, forgetFailed(context.Background(), l, bufio.NewReader(strings.NewReader("\n")), &out, ""))
	assert.Contains(t, out.String(), "SKIP")

	left, err := l.List(context.Background(), "failed")
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestForgetFailedNothingToRemove(t *testing.T) {
	l := seededLedger(t)
	var out bytes.Buffer

	require.NoError(t, forgetFailed(context.Background(), l, bufio.NewReader(strings.NewReader("")), &out, "A1"))
	assert.Contains(t, out.String(), "No failed entries to remove")
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, ledger.DriverPostgres, driverFor("postgres://u:p@localhost/db"))
	assert.Equal(t, ledger.DriverSQLite, driverFor(".desk-migrate/ledger.db"))
}

func TestNewLoggerFallsBackToNop(t *testing.T) {
	var stderr bytes.Buffer
	logger := newLogger(func(...zap.Option) (*zap.Logger, error) {
		return nil, errors.New("no sink")
	}, &stderr)

	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Sugar().Info("ignored") })
	assert.Contains(t, stderr.String(), "no sink")
}

func TestNewLoggerUsesBuiltLogger(t *testing.T) {
	var stderr bytes.Buffer
	logger := newLogger(zap.NewDevelopment, &stderr)

	require.NotNil(t, logger)
	assert.Empty(t, stderr.String())
}
