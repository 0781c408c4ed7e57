package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sangguni-ai/sangguni/config"
	"github.com/sangguni-ai/sangguni/internal/embedding"
	"github.com/sangguni-ai/sangguni/internal/knowledge"
	"github.com/sangguni-ai/sangguni/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return nil, err
	}
	return store.NewWithDSN(ctx, dsn)
}

func ingestCMD() *cobra.Command {
	var cfgPath string
	var categoryID string

	ingest := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Chunk, embed and store a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()

			metadata := map[string]interface{}{"source": args[0]}
			if categoryID != "" {
				metadata["category_id"] = categoryID
			}
			pipeline := knowledge.NewPipeline(knowledge.NewChunker(cfg.Chunking), embedding.NewClient(cfg.Embedding), st, nil)
			docID, err := pipeline.AddDocument(ctx, string(content), metadata)
			if err != nil {
				return err
			}
			fmt.Println(docID)
			return nil
		},
	}
	ingest.Flags().StringVar(&categoryID, "category", "", "category tag applied to every chunk")
	ingest.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ingest
}

func searchCMD() *cobra.Command {
	var cfgPath string
	var limit int

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve ranked context for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()

			if limit <= 0 {
				limit = cfg.Retrieval.DefaultLimit
			}
			retriever := knowledge.NewRetriever(st, embedding.NewClient(cfg.Embedding), cfg.Retrieval, nil)
			result, err := retriever.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if result == "" {
				fmt.Println("(no relevant context)")
				return nil
			}
			fmt.Println(result)
			return nil
		},
	}
	search.Flags().IntVar(&limit, "limit", 0, "maximum passages to return (0 = config default)")
	search.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return search
}
