package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/quillhub/backend/internal/config"
	"github.com/quillhub/backend/internal/database"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/repository"
	"github.com/quillhub/backend/internal/search"
	"github.com/spf13/cobra"
)

type searchResult struct {
	Query string                `json:"query"`
	Posts []search.PostDocument `json:"posts"`
	Count int                   `json:"count"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search post titles",
	Long: `Case-insensitive post title search, top 10 results.

Examples:
  quill search "go generics"
  quill search rust -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromConfig(false)
		if err != nil {
			return err
		}
		res, err := searchPosts(c, strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, res)
		}

		if res.Count == 0 {
			muted.Fprintf(out, "No posts match %q\n", res.Query)
			return nil
		}
		rows := make([][]string, 0, len(res.Posts))
		for _, p := range res.Posts {
			rows = append(rows, []string{
				strconv.FormatUint(uint64(p.ID), 10),
				p.Title,
				p.Username,
				p.CreatedAt.Local().Format(time.DateOnly),
			})
		}
		printTable(out, []string{"ID", "TITLE", "AUTHOR", "CREATED"}, rows)
		return nil
	},
}

func searchPosts(c *resty.Client, q string) (*searchResult, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	var res searchResult
	if err := check(c.R().SetQueryParam("q", q).SetResult(&res).Get("/api/v1/search/posts")); err != nil {
		return nil, err
	}
	return &res, nil
}

// reindex runs against the database and cluster directly, not the API
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the post search index from the database",
	Long: `Reads the server configuration (DB_*, ELASTICSEARCH_URL) and rebuilds
the post index, recreating it when its mapping version is outdated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.ElasticsearchURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is not set")
		}
		if err := logger.Initialize("warn", ""); err != nil {
			return err
		}
		defer logger.Close()

		if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
			return err
		}
		defer database.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
		defer cancel()

		client, err := search.NewClient(ctx, cfg.ElasticsearchURL)
		if err != nil {
			return err
		}
		svc := search.NewService(client, repository.NewPostRepository(database.DB))

		start := time.Now()
		n, err := svc.Reindex(ctx)
		if err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), "Indexed %d posts in %s", n, time.Since(start).Round(time.Millisecond))
		return nil
	},
}
