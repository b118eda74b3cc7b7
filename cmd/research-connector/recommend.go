// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-connector/internal/recommend"
	"github.com/pdiddy/research-connector/internal/taxonomy"
	"github.com/pdiddy/research-connector/pkg/types"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest collaborators who share your SDGs",
	Long: `Recommend compares the SDG profile of the papers authored under --email
with every other author's profile and lists the closest peers.

--author shows a peer's detail and their papers on the shared SDGs.
--contact logs the view (with --user-id) and prints a ready-to-send e-mail
draft with its mailto: link.`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().String("email", "", "your author e-mail (required)")
	recommendCmd.Flags().String("user-id", "", "your user id, used to log views")
	recommendCmd.Flags().String("author", "", "show the drill-down for this recommended author id")
	recommendCmd.Flags().String("contact", "", "draft a contact e-mail to this recommended author id")
	recommendCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	sess := sessionFromFlags(cmd)
	if !sess.HasEmail() {
		return fmt.Errorf("--email is required")
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := recommend.New(recommend.Deps{
		Store:    st,
		Activity: st,
		Logger:   app.log,
		Config:   app.cfg.Recommend,
	})

	res, err := engine.RecommendationsFor(ctx, sess)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	authorID, _ := cmd.Flags().GetString("author")
	contactID, _ := cmd.Flags().GetString("contact")

	switch {
	case authorID != "":
		rec, err := findRecommendation(res, authorID)
		if err != nil {
			return err
		}
		c := engine.ContextFor(ctx, rec)
		if asJSON {
			return writeJSON(w, c)
		}
		printAuthorContext(w, rec, c)
		return nil

	case contactID != "":
		rec, err := findRecommendation(res, contactID)
		if err != nil {
			return err
		}
		var viewID string
		if sess.UserID != "" {
			if viewID, err = engine.Select(ctx, sess, rec); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}
		c := engine.ContextFor(ctx, rec)
		var detail *types.AuthorDetail
		if c.AuthorErr == nil {
			detail = &c.Author
		}
		draft, err := engine.Contact(ctx, sess, viewID, rec, detail)
		if errors.Is(err, recommend.ErrNoContactAddress) {
			return fmt.Errorf("%s has no e-mail address on record", rec.AuthorName)
		}
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(w, draft)
		}
		fmt.Fprintf(w, "To:      %s\nSubject: %s\n\n%s\n\n%s\n", draft.To, draft.Subject, draft.Body, draft.MailtoURL)
		return nil
	}

	if asJSON {
		return writeJSON(w, res)
	}
	printRecommendations(w, res.Recommendations)
	return nil
}

func findRecommendation(res recommend.Result, authorID string) (types.ScoredAuthor, error) {
	for _, rec := range res.Recommendations {
		if rec.AuthorID == authorID {
			return rec, nil
		}
	}
	return types.ScoredAuthor{}, fmt.Errorf("author %s is not among your recommendations", authorID)
}

func printRecommendations(w io.Writer, recs []types.ScoredAuthor) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations found. Import papers you authored to build your SDG profile.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-36s  %-28s  %-30s  %-20s  %6s  %s\n",
		"Rank", "Author ID", "Name", "Institution", "Shared SDGs", "Papers", "Score")
	fmt.Fprintln(w, strings.Repeat("-", 140))
	for i, r := range recs {
		fmt.Fprintf(w, "%-4d  %-36s  %-28s  %-30s  %-20s  %6d  %.3f\n",
			i+1, r.AuthorID, clip(r.AuthorName, 28), clip(r.InstitutionName, 30),
			clip(taxonomy.Label(r.SharedTopics), 20), r.PaperCount, r.SimilarityScore)
	}
	fmt.Fprintf(w, "\n%d recommendations\n", len(recs))
}

func printAuthorContext(w io.Writer, rec types.ScoredAuthor, c recommend.AuthorContext) {
	if c.AuthorErr != nil {
		fmt.Fprintf(w, "%s (details unavailable: %v)\n", rec.AuthorName, c.AuthorErr)
	} else {
		fmt.Fprintf(w, "%s\n", c.Author.Name)
		if c.Author.Institution != "" {
			fmt.Fprintf(w, "  Institution: %s\n", c.Author.Institution)
		}
		if c.Author.Email != "" {
			fmt.Fprintf(w, "  E-mail:      %s\n", c.Author.Email)
		}
	}
	fmt.Fprintf(w, "  Shared:      %s (score %.3f)\n\n", taxonomy.Label(rec.SharedTopics), rec.SimilarityScore)

	if c.PapersErr != nil {
		fmt.Fprintf(w, "Papers unavailable: %v\n", c.PapersErr)
		return
	}
	if len(c.Papers) == 0 {
		fmt.Fprintln(w, "No papers on the shared SDGs.")
		return
	}
	for _, p := range c.Papers {
		fmt.Fprintf(w, "- %s [%s]\n", p.Title, taxonomy.Label(p.TopicIDs))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
