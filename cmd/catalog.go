// file: cmd/catalog.go
// version: 1.1.0
// guid: 5a7c2e48-9d16-4b3f-8e0a-1c6f4b9d2e75

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/catalog"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/people"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/search"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/watcher"
)

var (
	peopleCmd = &cobra.Command{
		Use:   "people [slug]",
		Short: "List the people credited in the catalog",
		Long: `Build the people index from catalog credits. Without a slug every person
is listed by name; with a slug that person's appearances are listed,
newest release first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			slug := ""
			if len(args) == 1 {
				slug = args[0]
			}
			return runPeople(cmd, slug, asJSON)
		},
	}

	searchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Long: `Full-text search over entry names, artists, labels, track names and
credited people. Every word of the query must match.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, _ := cmd.Flags().GetString("field")
			limit, _ := cmd.Flags().GetInt("limit")
			return runSearch(cmd, strings.Join(args, " "), field, limit)
		},
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check every catalog entry",
		Long: `Parse the catalog and check each entry has the fields the site reads:
id, name, artist, a cover image and ordered tracks. With --watch the
catalog is checked again whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")
			return runValidate(cmd, watch)
		},
	}
)

func init() {
	peopleCmd.Flags().Bool("json", false, "print the index as JSON")

	searchCmd.Flags().String("field", "", "restrict to one field: "+strings.Join(search.Fields, ", "))
	searchCmd.Flags().Int("limit", 10, "maximum number of results")

	validateCmd.Flags().Bool("watch", false, "re-validate whenever the catalog changes")
}

func runPeople(cmd *cobra.Command, slug string, asJSON bool) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.entries()
	if err != nil {
		return err
	}
	idx := people.Build(entries)
	out := cmd.OutOrStdout()

	var list []*people.Person
	if slug != "" {
		p := idx.Get(slug)
		if p == nil {
			return fmt.Errorf("no person with slug %q", slug)
		}
		list = []*people.Person{p}
	} else {
		list = idx.All()
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if slug != "" {
			return enc.Encode(list[0])
		}
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "No credits in the catalog")
		return nil
	}
	for _, p := range list {
		fmt.Fprintf(out, "%s (%s) %d %s\n", p.Name, p.Slug, len(p.Appearances), pluralize(len(p.Appearances), "appearance"))
		if slug == "" {
			continue
		}
		for _, ap := range p.Appearances {
			fmt.Fprintf(out, "  %s  %s by %s, %s\n", orDash(ap.ReleaseDate), ap.AlbumName, ap.Artist, ap.Role)
		}
	}
	return nil
}

func runSearch(cmd *cobra.Command, query, field string, limit int) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.entries()
	if err != nil {
		return err
	}
	idx, err := search.Build(entries)
	if err != nil {
		return err
	}
	defer idx.Close()

	hits, err := idx.Search(query, field, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintf(out, "No entries match %q\n", query)
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(out, "%-40s %s - %s\n", h.Entry.ID, h.Entry.Artist, h.Entry.Name)
	}
	return nil
}

// validationReport lists the problems found in a catalog.
type validationReport struct {
	Entries  int
	Problems []error
}

func validateCatalog(store *catalog.Store) (*validationReport, error) {
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	report := &validationReport{Entries: doc.Len()}
	seen := make(map[string]bool, doc.Len())
	for _, id := range doc.IDs() {
		if seen[id] {
			report.Problems = append(report.Problems, fmt.Errorf("duplicate id %q", id))
			continue
		}
		seen[id] = true

		e, _, err := doc.Entry(id)
		if err != nil {
			report.Problems = append(report.Problems, err)
			continue
		}
		if err := e.Validate(); err != nil {
			report.Problems = append(report.Problems, err)
		}
	}
	return report, nil
}

// errInvalidCatalog is returned by validate when any entry has problems.
var errInvalidCatalog = errors.New("catalog has invalid entries")

func printValidation(out io.Writer, path string, report *validationReport) error {
	if len(report.Problems) == 0 {
		fmt.Fprintf(out, "%s: %s %s OK\n", path, humanize.Comma(int64(report.Entries)), pluralize(report.Entries, "entry"))
		return nil
	}
	fmt.Fprintf(out, "%s: %d of %d entries have problems\n", path, len(report.Problems), report.Entries)
	for _, p := range report.Problems {
		fmt.Fprintf(out, "  %v\n", p)
	}
	return fmt.Errorf("%w: %d", errInvalidCatalog, len(report.Problems))
}

func runValidate(cmd *cobra.Command, watch bool) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	check := func() error {
		report, err := validateCatalog(a.store)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", a.cfg.CatalogPath, err)
			return err
		}
		return printValidation(out, a.cfg.CatalogPath, report)
	}

	result := check()
	if !watch {
		return result
	}
	return watchCatalog(cmd.Context(), a, func() { _ = check() })
}

// watchCatalog runs onChange after each settled change to the catalog until
// ctx is canceled.
func watchCatalog(ctx context.Context, a *app, onChange func()) error {
	w := watcher.New(func(changed []string) { onChange() }, 0)
	w.SetLogger(a.log)
	if err := w.Start(a.cfg.CatalogPath); err != nil {
		return err
	}
	defer w.Stop()

	a.log.Infof("watching %s, press Ctrl+C to stop", a.cfg.CatalogPath)
	<-ctx.Done()
	return nil
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	if strings.HasSuffix(word, "y") {
		return strings.TrimSuffix(word, "y") + "ies"
	}
	return word + "s"
}
