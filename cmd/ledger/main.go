package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/ledger"
)

const usage = "Usage: ledger <list|forget-failed> <ledger-db> [status|article-id]"

func main() {
	logger := newLogger(zap.NewDevelopment, os.Stderr)
	defer logger.Sync()
	log := logger.Sugar()

	if len(os.Args) < 3 {
		log.Fatal(usage)
	}

	command := os.Args[1]
	dbPath := os.Args[2]
	arg := ""
	if len(os.Args) > 3 {
		arg = os.Args[3]
	}

	ctx := context.Background()
	l, err := ledger.Open(ctx, driverFor(dbPath), dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	switch command {
	case "list":
		err = listEntries(ctx, l, os.Stdout, arg)
	case "forget-failed":
		err = forgetFailed(ctx, l, bufio.NewReader(os.Stdin), os.Stdout, arg)
	default:
		err = fmt.Errorf("unknown command %q\n%s", command, usage)
	}
	if err != nil {
		l.Close()
		log.Fatal(err)
	}
}

// newLogger builds a logger, falling back to a no-op logger when build fails
func newLogger(build func(...zap.Option) (*zap.Logger, error), stderr io.Writer) *zap.Logger {
	logger, err := build()
	if err != nil {
		fmt.Fprintf(stderr, "logging disabled: %v\n", err)
		return zap.NewNop()
	}
	return logger
}

// driverFor picks postgres for connection URLs and sqlite for file paths
func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return ledger.DriverPostgres
	}
	return ledger.DriverSQLite
}

func listEntries(ctx context.Context, l *ledger.Ledger, w io.Writer, status string) error {
	entries, err := l.List(ctx, status)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tRUN\tARTICLE\tSTATUS\tNEW ID\tERROR")
	for _, e := range entries {
		detail := e.Error
		if e.ErrorKind != "" {
			detail = fmt.Sprintf("[%s/%s] %s", e.ErrorKind, e.Cause, e.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.RecordedAt.Format("2006-01-02 15:04:05"), shortID(e.RunID), e.ArticleID, e.Status, e.NewArticleID, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d entries\n", len(entries))
	return nil
}

// forgetFailed removes failed entries after confirmation. Failed entries
// never block a re-run; removing them only tidies the history.
func forgetFailed(ctx context.Context, l *ledger.Ledger, reader *bufio.Reader, w io.Writer, articleID string) error {
	entries, err := l.List(ctx, "failed")
	if err != nil {
		return err
	}

	matching := 0
	for _, e := range entries {
		if articleID == "" || e.ArticleID == articleID {
			matching++
		}
	}
	if matching == 0 {
		fmt.Fprintln(w, "No failed entries to remove")
		return nil
	}

	target := "all articles"
	if articleID != "" {
		target = "article " + articleID
	}
	if !confirmDelete(reader, w, fmt.Sprintf("%d failed entries for %s", matching, target)) {
		fmt.Fprintln(w, "  SKIP")
		return nil
	}

	n, err := l.ForgetFailed(ctx, articleID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nRemoved %d failed entries\n", n)
	return nil
}

func confirmDelete(reader *bufio.Reader, w io.Writer, what string) bool {
	for {
		fmt.Fprintf(w, "  DELETE %s? [y/N]: ", what)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			if err != nil {
				return false
			}
			fmt.Fprintln(w, "  Please enter y or n.")
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
