// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-connector/internal/search"
	"github.com/pdiddy/research-connector/internal/session"
	"github.com/pdiddy/research-connector/internal/taxonomy"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find papers semantically similar to a question",
	Long: `Search embeds the query, ranks catalog papers by cosine similarity and
prints the closest ones. --topics restricts results to papers tagged with at
least one of the given SDGs.

--save writes the query and results to a YAML file; --from prints a saved
file again without contacting the embedding provider or the store.
Searches are logged for analytics when --email or --user-id is given.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("topics", "", "comma-separated SDG filter, e.g. 3,13")
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default 20, at most 100)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("yaml", false, "output results as YAML")
	searchCmd.Flags().String("save", "", "write the query and results to this YAML file")
	searchCmd.Flags().String("from", "", "print results from a file written by --save")
	searchCmd.Flags().String("email", "", "identity to log the search under")
	searchCmd.Flags().String("user-id", "", "user id to log the search under")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		qf, err := search.ReadQueryFile(from)
		if err != nil {
			return err
		}
		return printSearch(cmd, qf.Output())
	}

	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("provide a search query")
	}
	topicFlag, _ := cmd.Flags().GetString("topics")
	topics, err := taxonomy.ParseIDs(topicFlag)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ctx := cmd.Context()
	embedder, err := openEmbedder(app.cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := search.New(search.Deps{
		Embedder:  embedder,
		Papers:    st,
		Activity:  st,
		Logger:    app.log,
		Metrics:   app.metrics,
		Config:    app.cfg.Search,
		Dimension: app.cfg.Embedding.Dimension,
	})

	out, err := svc.Search(ctx, sessionFromFlags(cmd), search.Request{Query: query, Topics: topics, Limit: limit})
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := search.WriteQueryFile(save, out, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d results to %s\n", len(out.Results), save)
	}
	return printSearch(cmd, out)
}

func printSearch(cmd *cobra.Command, out search.Output) error {
	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(out, w)
	}
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return search.FormatYAML(out, w)
	}
	search.FormatTable(out, w)
	return nil
}

// sessionFromFlags builds the caller identity from --email and --user-id.
// It returns nil when neither is set.
func sessionFromFlags(cmd *cobra.Command) *session.Session {
	email, _ := cmd.Flags().GetString("email")
	userID, _ := cmd.Flags().GetString("user-id")
	email, userID = strings.TrimSpace(email), strings.TrimSpace(userID)
	if email == "" && userID == "" {
		return nil
	}
	return &session.Session{UserID: userID, Email: email}
}
