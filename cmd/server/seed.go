package main

import (
	"fmt"
	"time"

	"github.com/prperemyshlev/slangdex/internal/catalog"
	"github.com/prperemyshlev/slangdex/internal/config"
	"github.com/prperemyshlev/slangdex/internal/repository"
	"github.com/prperemyshlev/slangdex/pkg/database"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the trending slang words into the search index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pg, err := config.LoadPostgres(ctx)
		if err != nil {
			return err
		}

		db, err := database.NewPostgres(ctx, pg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		words, err := catalog.TrendingSeed(time.Now().UTC())
		if err != nil {
			return err
		}

		repo := repository.NewWordRepository(db)
		for _, w := range words {
			if err := repo.Upsert(ctx, w); err != nil {
				return fmt.Errorf("failed to seed %q: %w", w.Word, err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d words\n", len(words))
		return nil
	},
}
