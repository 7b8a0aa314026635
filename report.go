package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/migration"
)

const previewLength = 200

var converter = md.NewConverter("", true, nil)

// printResult writes one line per result, plus a content preview for dry runs
func printResult(w io.Writer, r migration.MigrationResult) {
	switch r.Status {
	case migration.StatusSuccess:
		fmt.Fprintf(w, "  ✓ Migrated %s %q -> %s", r.ArticleID, r.Title, r.NewArticleID)
		if r.NewPermalink != "" {
			fmt.Fprintf(w, " (%s)", r.NewPermalink)
		}
		fmt.Fprintln(w)
	case migration.StatusDryRun:
		fmt.Fprintf(w, "  ✓ Dry run %s %q\n", r.ArticleID, r.Title)
		if r.Source != nil && r.Transformed != nil {
			fmt.Fprintf(w, "    category:   %s -> %s\n", r.Source.CategoryID, r.Transformed.CategoryID)
			fmt.Fprintf(w, "    department: %s -> %s\n", r.Source.DepartmentID, r.Transformed.DepartmentID)
			if len(r.Transformed.Tags) > 0 {
				fmt.Fprintf(w, "    tags:       %s\n", strings.Join(r.Transformed.Tags, ", "))
			}
			printContentPreview(w, r.Transformed.Answer)
		}
	default:
		fmt.Fprintf(w, "  ✗ Failed %s: [%s/%s] %s\n", r.ArticleID, r.ErrorKind, r.Cause, r.Error)
	}
}

func printContentPreview(w io.Writer, html string) {
	preview, err := previewContent(html, previewLength)
	if err != nil {
		fmt.Fprintf(w, "    content:    (preview unavailable: %v)\n", err)
		return
	}
	images, links, err := contentStats(html)
	if err == nil {
		fmt.Fprintf(w, "    content:    %d bytes, %d images, %d links\n", len(html), images, links)
	}
	if preview != "" {
		fmt.Fprintf(w, "    preview:    %s\n", preview)
	}
}

// previewContent converts the article HTML to markdown on one line and
// truncates it to n runes
func previewContent(html string, n int) (string, error) {
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting content: %w", err)
	}
	text := strings.Join(strings.Fields(markdown), " ")
	if utf8.RuneCountInString(text) <= n {
		return text, nil
	}
	return string([]rune(text)[:n]) + "...", nil
}

// contentStats counts embedded images and links
func contentStats(html string) (images, links int, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing content: %w", err)
	}
	return doc.Find("img").Length(), doc.Find("a[href]").Length(), nil
}

// printSummary writes totals by status
func printSummary(w io.Writer, results []migration.MigrationResult, skipped []string) {
	counts := make(map[migration.Status]int)
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Fprintf(w, "\nAttempted %d: %d migrated, %d dry run, %d failed",
		len(results), counts[migration.StatusSuccess], counts[migration.StatusDryRun], counts[migration.StatusFailed])
	if len(skipped) > 0 {
		fmt.Fprintf(w, ", %d skipped (already migrated)", len(skipped))
	}
	fmt.Fprintln(w)
}

// printArticles writes one line per article
func printArticles(w io.Writer, articles []desk.Article) {
	for _, a := range articles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.DepartmentID, a.CategoryID, a.Title)
	}
	fmt.Fprintf(w, "%d articles\n", len(articles))
}

// printCategoryTree writes a flattened tree indented by depth
func printCategoryTree(w io.Writer, name string, categories []desk.FlatCategory) {
	fmt.Fprintf(w, "\n%s (%d categories)\n", name, len(categories))
	for _, c := range categories {
		indent := strings.Repeat("  ", c.Depth)
		fmt.Fprintf(w, "%s%s  %s", indent, c.ID, c.Name)
		if c.HasChildren {
			fmt.Fprint(w, " [has children]")
		}
		fmt.Fprintln(w)
	}
}

// writeMappingYAML writes suggestions as a categories: block for
// settings.yaml, with each category name as a line comment
func writeMappingYAML(w io.Writer, suggestions []migration.Suggestion) error {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range suggestions {
		comment := "# " + s.SourceName
		if !s.Matched {
			comment += " -> no destination category with this name"
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: s.SourceID, Style: yaml.DoubleQuotedStyle},
			&yaml.Node{Kind: yaml.ScalarNode, Value: s.DestinationID, Style: yaml.DoubleQuotedStyle, LineComment: comment},
		)
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "categories"},
		mapping,
	}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}
	return enc.Close()
}
