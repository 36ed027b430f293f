package main

import (
	"errors"
	"fmt"

	"giftmatch/internal/logger"
	"giftmatch/internal/services"
	"giftmatch/internal/storage"
	"giftmatch/pkg"

	"github.com/spf13/cobra"
)

var (
	wizardRecipient   string
	wizardType        string
	wizardOccasion    string
	wizardBudget      string
	wizardPersonality string
	wizardInterests   []string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print recommendations for a fully specified gift request",
	Example: `  giftmatch recommend --recipient Mother --occasion Diwali --budget High --interest fashion
  giftmatch recommend --recipient Friend --occasion Birthday --budget "Under ₹1,500"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		band := pkg.PriceBand(wizardBudget)
		if parsed, ok := pkg.ParsePriceBand(wizardBudget); ok {
			band = parsed
		}
		resp, err := a.recommender.Wizard(cmd.Context(), pkg.GiftContext{
			RecipientGroup: wizardRecipient,
			RecipientType:  wizardType,
			Occasion:       wizardOccasion,
			PriceBand:      band,
			Personality:    wizardPersonality,
			Interests:      wizardInterests,
		})
		switch {
		case errors.Is(err, services.ErrMissingContext):
			return fmt.Errorf("--recipient, --occasion and --budget are required")
		case errors.Is(err, services.ErrNoMatches):
			return fmt.Errorf("no gifts match your criteria, try different selections")
		case err != nil:
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n%d matching gifts\n\n%s\n", resp.Context, resp.MatchedGifts, resp.Recommendations)
		return nil
	},
}

var docsFile string

var seedDocsCmd = &cobra.Command{
	Use:   "seed-docs",
	Short: "Index course documents for the assistant tools",
	Long: `seed-docs reads a JSON array of documents ({"id","content","meta_data"}) and stores
them in redis under the retrieval key prefix. meta_data.source_type selects the tool
that can find the document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Redis.URL == "" {
			return fmt.Errorf("seed-docs requires a redis url")
		}

		docs, err := storage.LoadDocumentsFile(docsFile)
		if err != nil {
			return err
		}

		redisStore, err := storage.NewRedisStorage(cmd.Context(), cfg.Redis.URL, cfg.Retrieval.KeyPrefix)
		if err != nil {
			return err
		}
		defer redisStore.Close()

		ids, err := storage.NewDocumentStore(redisStore).Store(cmd.Context(), docs)
		if err != nil {
			return fmt.Errorf("failed to index documents: %w", err)
		}
		logger.Info().Int("documents", len(ids)).Str("file", docsFile).Msg("Documents indexed")
		return nil
	},
}

func init() {
	flags := recommendCmd.Flags()
	flags.StringVar(&wizardRecipient, "recipient", "", "recipient group, e.g. Mother, Friend, Boss")
	flags.StringVar(&wizardType, "recipient-type", "", "recipient type, e.g. Family, Partner, Work")
	flags.StringVar(&wizardOccasion, "occasion", "", "occasion, e.g. Birthday, Diwali")
	flags.StringVar(&wizardBudget, "budget", "", "price band: Low, Medium, High or its display range")
	flags.StringVar(&wizardPersonality, "personality", "", "personality, e.g. Creative")
	flags.StringSliceVar(&wizardInterests, "interest", nil, "interests (repeatable)")

	seedDocsCmd.Flags().StringVarP(&docsFile, "file", "f", "data/course_documents.json", "JSON file with documents to index")
}
