package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/catalograg-go/internal/answer"
	"github.com/54b3r/catalograg-go/internal/catalog"
	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/embedder"
	"github.com/54b3r/catalograg-go/internal/index"
	"github.com/54b3r/catalograg-go/internal/logging"
	"github.com/54b3r/catalograg-go/internal/source"
)

// NewCheckCmd constructs the `catalograg check` command, which verifies
// connectivity to the product database and the vector index.
func NewCheckCmd() *cobra.Command {
	var query string
	var k int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to MongoDB and the vector index",
		Long: `Ping MongoDB, print the product count and one sample product, then ping the
vector index and report whether it exists.

With --search, the text is embedded and a test search is run against the
index, printing the top hits with their similarity scores.

Examples:
  catalograg check
  catalograg check --search "waterproof hiking boots"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			out := cmd.OutOrStdout()

			req := config.NeedSource | config.NeedIndex
			if query != "" {
				req |= config.NeedEmbedder
			}
			settings, err := loadSettings(req)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}

			src, err := source.NewMongo(ctx, settings.Mongo)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			defer closeQuietly(log, "mongodb", src.Close)

			if err := src.Ping(ctx); err != nil {
				return fmt.Errorf("check: mongodb: %w", err)
			}
			n, err := src.Count(ctx)
			if err != nil {
				return fmt.Errorf("check: mongodb: %w", err)
			}
			fmt.Fprintf(out, "MongoDB OK: %d products in %s.%s\n", n, settings.Mongo.Database, settings.Mongo.Collection)

			sample, err := src.Sample(ctx)
			if err != nil {
				return fmt.Errorf("check: mongodb sample: %w", err)
			}
			if sample != nil {
				fmt.Fprintf(out, "Sample document:\n%s\n", indent(sample.JSON, "  "))
				fmt.Fprintf(out, "Sample flattened (%s):\n%s\n",
					catalog.ResolveID(sample.Product, 0), indent(catalog.Flatten(sample.Product), "  "))
			}

			st, err := openIndex(settings, log)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := st.Ping(ctx); err != nil {
				return fmt.Errorf("check: %s: %w", st.Name(), err)
			}
			exists, err := st.Exists(ctx)
			if err != nil {
				return fmt.Errorf("check: %s: %w", st.Name(), err)
			}
			if err := writeStatus(cmd, out, st, settings.Index.Name, exists); err != nil {
				return fmt.Errorf("check: %w", err)
			}

			if query == "" {
				return nil
			}
			if !exists {
				return fmt.Errorf("check: %w", describeIndexErr(index.ErrIndexNotFound, settings.Index.Name))
			}

			emb, err := newEmbedder(ctx, settings, log)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			log.Debug("running test search", slog.String("query", query), slog.Int("k", k))
			return testSearch(cmd, out, emb, st, query, k)
		},
	}

	cmd.Flags().StringVar(&query, "search", "", "Embed this text and run a test search")
	cmd.Flags().IntVarP(&k, "top-k", "k", answer.TopK, "Number of hits to show with --search")
	return cmd
}

// testSearch embeds query and prints the top k hits.
func testSearch(cmd *cobra.Command, w io.Writer, emb embedder.Embedder, st index.Store, query string, k int) error {
	vec, err := emb.Embed(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("check: embed: %w", err)
	}
	hits, err := st.Search(cmd.Context(), vec, k)
	if err != nil {
		return fmt.Errorf("check: search: %w", err)
	}
	if len(hits) == 0 {
		_, err := fmt.Fprintln(w, "Search returned no hits.")
		return err
	}
	fmt.Fprintf(w, "Top %d hits for %q:\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "  %d. %s  score=%.4f  %s\n", i+1, h.ID, h.Score, h.Metadata.Name)
	}
	return nil
}
