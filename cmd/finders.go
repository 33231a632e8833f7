// file: cmd/finders.go
// version: 1.0.0
// guid: 8d3f6b19-2c74-4e5a-b1f0-7a9e4c2d6b83

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/pipeline"
)

var (
	findCoversCmd = &cobra.Command{
		Use:   "find-covers <manifest.yaml>",
		Short: "Download missing cover art for manifest singles",
		Long: `For each single without a saved cover, search its cover_searches terms as
songs and then albums and download the first hit whose artist matches
the single's artist_keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFindCovers(cmd, args[0])
		},
	}

	findAlbumsCmd = &cobra.Command{
		Use:   "find-albums <manifest.yaml>",
		Short: "List the albums manifest singles appear on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFindAlbums(cmd, args[0])
		},
	}
)

func runFindCovers(cmd *cobra.Command, manifestPath string) error {
	m, err := pipeline.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	in, err := a.ingester(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Searching %s for %d covers...\n", in.Source.Name(), len(m.Singles))
	reports, err := in.FindCovers(cmd.Context(), m)
	// Reports gathered before an abort are still worth printing.
	found := 0
	for _, r := range reports {
		switch r.Status {
		case pipeline.CoverExists:
			fmt.Fprintf(out, "  %s: already exists (%s)\n", r.Slug, r.Path)
		case pipeline.CoverDownloaded:
			found++
			fmt.Fprintf(out, "  %s: saved %s from %q by %s\n", r.Slug, r.Path, r.Found.Title, r.Found.Artist)
		default:
			fmt.Fprintf(out, "  %s: not found\n", r.Slug)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Done: %d downloaded\n", found)
	return nil
}

func runFindAlbums(cmd *cobra.Command, manifestPath string) error {
	m, err := pipeline.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	in, err := a.ingester(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	listings, err := in.FindAlbums(cmd.Context(), m)
	for _, l := range listings {
		fmt.Fprintf(out, "%s - %s\n", l.Single.Artist, l.Single.Title)
		switch {
		case l.Err != nil:
			fmt.Fprintf(out, "  search failed: %v\n", l.Err)
		case len(l.Hits) == 0:
			fmt.Fprintln(out, "  no results")
		}
		for _, h := range l.Hits {
			fmt.Fprintf(out, "  %q on %q by %s\n", h.Track, h.Album, h.Artist)
		}
	}
	return err
}
