package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/index"
	"github.com/54b3r/catalograg-go/internal/logging"
)

// indexAction is one `catalograg index` subcommand body.
type indexAction func(cmd *cobra.Command, st index.Store, s *config.Settings) error

// NewIndexCmd constructs the `catalograg index` command group for vector
// index administration.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Administer the vector index",
		Long: `Create, delete, recreate or inspect the vector index named by INDEX_NAME on
the backend named by VECTOR_BACKEND.

Examples:
  catalograg index create
  catalograg index status
  VECTOR_BACKEND=qdrant catalograg index recreate`,
	}

	cmd.AddCommand(
		newIndexSubCmd("create", "Create the index if it does not exist", indexCreate),
		newIndexSubCmd("delete", "Delete the index and every document in it", indexDelete),
		newIndexSubCmd("recreate", "Delete the index if present, then create it", indexRecreate),
		newIndexSubCmd("status", "Report whether the index exists and how many documents it holds", indexStatus),
	)
	return cmd
}

func newIndexSubCmd(use, short string, action indexAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			settings, err := loadSettings(config.NeedIndex)
			if err != nil {
				return fmt.Errorf("index %s: %w", use, err)
			}
			st, err := openIndex(settings, log)
			if err != nil {
				return fmt.Errorf("index %s: %w", use, err)
			}
			defer func() { _ = st.Close() }()

			if err := action(cmd, st, settings); err != nil {
				return fmt.Errorf("index %s: %w", use, err)
			}
			return nil
		},
	}
}

func indexCreate(cmd *cobra.Command, st index.Store, s *config.Settings) error {
	if err := st.CreateIndex(cmd.Context()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Index %q ready on %s (%d dimensions).\n", s.Index.Name, st.Name(), s.Index.Dimensions)
	return err
}

func indexDelete(cmd *cobra.Command, st index.Store, s *config.Settings) error {
	if err := st.DeleteIndex(cmd.Context()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Index %q deleted from %s.\n", s.Index.Name, st.Name())
	return err
}

func indexRecreate(cmd *cobra.Command, st index.Store, s *config.Settings) error {
	logging.FromContext(cmd.Context()).Info("recreating index", slog.String("index", s.Index.Name))
	if err := st.DeleteIndex(cmd.Context()); err != nil {
		return err
	}
	return indexCreate(cmd, st, s)
}

func indexStatus(cmd *cobra.Command, st index.Store, s *config.Settings) error {
	ctx := cmd.Context()
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", st.Name(), err)
	}
	exists, err := st.Exists(ctx)
	if err != nil {
		return err
	}
	return writeStatus(cmd, cmd.OutOrStdout(), st, s.Index.Name, exists)
}

// writeStatus prints existence and, when the backend can count, the
// document count.
func writeStatus(cmd *cobra.Command, w io.Writer, st index.Store, name string, exists bool) error {
	if !exists {
		_, err := fmt.Fprintf(w, "Index %q does not exist on %s.\n", name, st.Name())
		return err
	}
	counter, ok := st.(index.Counter)
	if !ok {
		_, err := fmt.Fprintf(w, "Index %q exists on %s.\n", name, st.Name())
		return err
	}
	n, err := counter.Count(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Index %q exists on %s with %d documents.\n", name, st.Name(), n)
	return err
}
