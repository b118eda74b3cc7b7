// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-connector/internal/recommend"
	"github.com/pdiddy/research-connector/pkg/types"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "research-connector dev\n", out.String())
}

func TestOpenStore(t *testing.T) {
	cfg := types.Config{
		Store:     types.StoreConfig{Backend: types.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "data", "rc.db")},
		Embedding: types.EmbeddingConfig{Dimension: 3},
	}
	st, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer st.Close()
	topics, err := st.ListTopics(context.Background())
	require.NoError(t, err)
	assert.Len(t, topics, types.TopicCount)

	_, err = openStore(context.Background(), types.Config{Store: types.StoreConfig{Backend: types.BackendPostgres}})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestSessionFromFlags(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("email", "", "")
		cmd.Flags().String("user-id", "", "")
		require.NoError(t, cmd.Flags().Parse(args))
		return cmd
	}

	assert.Nil(t, sessionFromFlags(newCmd()))
	sess := sessionFromFlags(newCmd("--email", " ada@byu.edu ", "--user-id", "u1"))
	require.NotNil(t, sess)
	assert.Equal(t, "ada@byu.edu", sess.Email)
	assert.Equal(t, "u1", sess.UserID)
}

func TestFindRecommendation(t *testing.T) {
	res := recommend.Result{Recommendations: []types.ScoredAuthor{{AuthorID: "a1", AuthorName: "Grace"}}}
	rec, err := findRecommendation(res, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Grace", rec.AuthorName)

	_, err = findRecommendation(res, "a2")
	assert.ErrorContains(t, err, "not among your recommendations")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "Univers...", clip("University of Somewhere", 10))
}
