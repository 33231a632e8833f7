// file: cmd/add.go
// version: 1.1.0
// guid: 4c8e1a93-7b25-4d6f-a0e9-3f5b8d2c7a14

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/pipeline"
)

var (
	addAlbumCmd = &cobra.Command{
		Use:   "add-album <artist> <album>",
		Short: "Look up an album and add it to the catalog",
		Long: `Search the provider for an album, fall back to a song search when no
album matches, build the catalog entry with its track listing, download
the cover and merge the entry into the catalog.

Credits already stored for the entry are kept unless --credit is given.`,
		Example: `  vinyl-shelf add-album "Queen" "A Night at the Opera"
  vinyl-shelf add-album "EBK JaayBo" "Boogieman" --credit "Tyler Chase:Mixing engineer"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credits, _ := cmd.Flags().GetStringArray("credit")
			noCover, _ := cmd.Flags().GetBool("no-cover")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runAddAlbum(cmd, args[0], args[1], credits, noCover, dryRun)
		},
	}

	addSinglesCmd = &cobra.Command{
		Use:   "add-singles <manifest.yaml>",
		Short: "Add every single of a manifest to the catalog",
		Long: `Search each single of a YAML manifest as a song, build one-track entries
with the manifest credits and merge them in a single catalog write.
Singles the provider does not know keep the manifest data and a
placeholder cover.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runAddSingles(cmd, args[0], dryRun)
		},
	}
)

func init() {
	addAlbumCmd.Flags().StringArray("credit", nil, `credit as "Name:Role" (repeatable); replaces stored credits`)
	addAlbumCmd.Flags().Bool("no-cover", false, "skip the cover download and keep any existing cover")
	addAlbumCmd.Flags().Bool("dry-run", false, "run the lookup but write neither the catalog nor cover files")

	addSinglesCmd.Flags().Bool("dry-run", false, "run the lookups but write neither the catalog nor cover files")
}

// parseCredits turns "Name:Role" flags into credit entries. No flags yields
// nil so stored credits are carried forward.
func parseCredits(values []string) ([]models.CreditEntry, error) {
	if len(values) == 0 {
		return nil, nil
	}
	credits := make([]models.CreditEntry, 0, len(values))
	for _, v := range values {
		name, role, ok := strings.Cut(v, ":")
		name, role = strings.TrimSpace(name), strings.TrimSpace(role)
		if !ok || name == "" || role == "" {
			return nil, fmt.Errorf("invalid --credit %q: want \"Name:Role\"", v)
		}
		credits = append(credits, models.CreditEntry{Name: name, Role: role})
	}
	return credits, nil
}

func runAddAlbum(cmd *cobra.Command, artist, album string, creditFlags []string, noCover, dryRun bool) error {
	credits, err := parseCredits(creditFlags)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	a.store.DryRun = dryRun

	in, err := a.ingester(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	in.SkipCover = noCover
	in.DryRun = dryRun

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Looking up %q by %s on %s...\n", album, artist, in.Source.Name())

	res, err := in.IngestAlbum(cmd.Context(), pipeline.AlbumRequest{Artist: artist, Title: album, Credits: credits})
	if err != nil {
		return err
	}
	printAlbumResult(out, res, dryRun)
	return nil
}

func printAlbumResult(out io.Writer, res *pipeline.Result, dryRun bool) {
	e := res.Entry
	fmt.Fprintf(out, "Matched %q by %s (%s search, score %d)\n",
		res.Match.Candidate.Title, res.Match.Candidate.Artist, res.Match.Mode, res.Match.Score)
	fmt.Fprintf(out, "  id:      %s\n", e.ID)
	fmt.Fprintf(out, "  label:   %s\n", orDash(e.Label))
	fmt.Fprintf(out, "  release: %s\n", orDash(e.ReleaseDateString()))
	fmt.Fprintf(out, "  tracks:  %d\n", len(e.Tracks))
	cover := e.CoverURL()
	if res.CoverFallback {
		cover += " (placeholder)"
	}
	fmt.Fprintf(out, "  cover:   %s\n", cover)

	switch {
	case dryRun:
		fmt.Fprintln(out, "Dry run: catalog not written")
	case !res.Changed:
		fmt.Fprintln(out, "Catalog already up to date")
	case res.Merge.Created:
		fmt.Fprintf(out, "Added %s at position %d\n", e.ID, res.Merge.Index+1)
	default:
		fmt.Fprintf(out, "Updated %s\n", e.ID)
	}
}

func runAddSingles(cmd *cobra.Command, manifestPath string, dryRun bool) error {
	m, err := pipeline.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	a.store.DryRun = dryRun

	in, err := a.ingester(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	in.DryRun = dryRun

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Adding %d singles to %s...\n", len(m.Singles), a.cfg.CatalogPath)
	res, err := in.AddSingles(cmd.Context(), m)
	if err != nil {
		return err
	}

	for i, o := range res.Outcomes {
		status := "found"
		if !o.Matched {
			status = "not found, using manifest data"
		}
		fmt.Fprintf(out, "  [%d/%d] %s by %s: %s\n", i+1, len(res.Outcomes), o.Single.Title, o.Single.Artist, status)
		if o.CoverFallback {
			fmt.Fprintf(out, "        cover placeholder %s\n", o.Entry.CoverURL())
		}
	}

	switch {
	case dryRun:
		fmt.Fprintln(out, "Dry run: catalog not written")
	case res.Changed:
		fmt.Fprintf(out, "Updated catalog with %d singles (%d matched)\n", len(res.Outcomes), res.Matched())
	default:
		fmt.Fprintln(out, "Catalog already up to date")
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
