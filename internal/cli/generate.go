package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/itemforge/itemforge/internal/cache"
	"github.com/itemforge/itemforge/internal/corpus"
	"github.com/itemforge/itemforge/internal/engine"
	"github.com/itemforge/itemforge/internal/llm"
	"github.com/itemforge/itemforge/internal/model"
)

var generateFlags struct {
	subject     string
	chapter     string
	easy        int
	medium      int
	hard        int
	topics      []string
	tags        []string
	description string
	difficulty  string
	rounds      int
	strategy    string
	evaluate    bool
	dbPath      string
	outPath     string
	seed        int64
}

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate exam items for a subject",
	Long: `Generate original multiple-choice exam items.

The run retrieves similar curated items from the corpus as inspiration,
synthesizes new questions in their style, and iterates in rounds until the
requested counts per difficulty are met or the round budget runs out.

Examples:
  itemforge generate --subject biology --easy 5 --medium 3 --hard 2
  itemforge generate --subject physics --chapter optics --medium 10 \
      --strategy feedback --evaluate --rounds 5
  itemforge generate --subject history --easy 4 --topics "french revolution" \
      --out paper.json`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.subject, "subject", "", "subject to generate items for (required)")
	f.StringVar(&generateFlags.chapter, "chapter", "", "chapter within the subject")
	f.IntVar(&generateFlags.easy, "easy", 0, "number of easy items")
	f.IntVar(&generateFlags.medium, "medium", 0, "number of medium items")
	f.IntVar(&generateFlags.hard, "hard", 0, "number of hard items")
	f.StringSliceVar(&generateFlags.topics, "topics", nil, "topics to emphasize")
	f.StringSliceVar(&generateFlags.tags, "tags", nil, "tags to emphasize")
	f.StringVar(&generateFlags.description, "description", "", "free-text steering for the paper")
	f.StringVar(&generateFlags.difficulty, "difficulty", "", "overall difficulty skew (easy, medium, hard)")
	f.IntVar(&generateFlags.rounds, "rounds", 0, "max generation rounds (default 3, capped at 10)")
	f.StringVar(&generateFlags.strategy, "strategy", "", "retrieval strategy: plain, permutation, feedback")
	f.BoolVar(&generateFlags.evaluate, "evaluate", false, "review the paper after each round")
	f.StringVar(&generateFlags.dbPath, "db", "", "corpus database path")
	f.StringVar(&generateFlags.outPath, "out", "", "write the full result JSON to this file")
	f.Int64Var(&generateFlags.seed, "seed", 0, "fix the retrieval shuffle for reproducible runs")

	_ = generateCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if generateFlags.strategy != "" {
		cfg.Engine.Strategy = generateFlags.strategy
	}
	if generateFlags.evaluate {
		cfg.Engine.Evaluate = true
	}
	if generateFlags.dbPath != "" {
		cfg.Corpus.DBPath = generateFlags.dbPath
	}

	req := model.GenerationRequest{
		Subject:           generateFlags.subject,
		Chapter:           generateFlags.chapter,
		OverallDifficulty: model.Tier(generateFlags.difficulty),
		EasyCount:         generateFlags.easy,
		MediumCount:       generateFlags.medium,
		HardCount:         generateFlags.hard,
		Topics:            generateFlags.topics,
		Tags:              generateFlags.tags,
		Description:       generateFlags.description,
		MaxRounds:         generateFlags.rounds,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	deps, cleanup, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	deps.Seed = generateFlags.seed

	eng := engine.New(cfg, deps)
	result, err := eng.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}

	if generateFlags.outPath != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if err := os.WriteFile(generateFlags.outPath, data, 0644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Result written to %s\n", generateFlags.outPath)
	}

	printResult(result)
	return nil
}

// buildDeps wires the external services from config. The returned cleanup
// closes the corpus database.
func buildDeps(cfg *model.Config) (engine.Deps, func(), error) {
	noop := func() {}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return engine.Deps{}, noop, err
	}

	embedKey := cfg.LLM.APIKey
	if cfg.LLM.Provider != "openai" {
		embedKey = os.Getenv("OPENAI_API_KEY")
	}
	var embedder corpus.Embedder
	openaiEmbedder, err := corpus.NewOpenAIEmbedder(embedKey, "", cfg.Embedding.Model)
	if err != nil {
		return engine.Deps{}, noop, err
	}
	embedder = openaiEmbedder
	if cfg.Embedding.CacheDir != "" {
		embedCache := cache.NewLayeredCache(time.Hour, cfg.Embedding.CacheDir, 30*24*time.Hour)
		embedder = corpus.NewCachingEmbedder(embedder, cfg.Embedding.Model, embedCache, 0)
	}

	index, err := corpus.NewVectorIndex(corpus.VectorIndexConfig{
		APIKey:    cfg.Vector.APIKey,
		Host:      cfg.Vector.Host,
		Namespace: cfg.Vector.Namespace,
		Timeout:   time.Duration(cfg.Vector.Timeout) * time.Second,
	})
	if err != nil {
		return engine.Deps{}, noop, err
	}

	store, err := corpus.OpenSQLite(cfg.Corpus.DBPath)
	if err != nil {
		return engine.Deps{}, noop, err
	}

	return engine.Deps{
		Provider:   provider,
		Embedder:   embedder,
		Searcher:   index,
		Docs:       store,
		Vocabulary: store,
		Logger:     slog.Default(),
	}, func() { _ = store.Close() }, nil
}

func printResult(result *model.GenerationResult) {
	meta := result.Meta
	fmt.Printf("\nGenerated %d of %d requested items in %d round(s) [%s strategy, %d contexts]\n\n",
		meta.Generated.Total(), meta.Requested.Total(), meta.RoundsUsed, meta.Strategy, meta.ContextsConsumed)

	for _, tier := range model.Tiers {
		if meta.Requested[tier] == 0 && meta.Generated[tier] == 0 {
			continue
		}
		fmt.Printf("  %-6s %d/%d\n", tier, meta.Generated[tier], meta.Requested[tier])
	}

	if meta.FinalEvaluation != nil {
		ev := meta.FinalEvaluation
		fmt.Printf("\nReviewer: overall %d/10, coverage %d/10, diversity %d/10, balance %d/10\n",
			ev.OverallScore, ev.CoverageScore, ev.DiversityScore, ev.DifficultyBalanceScore)
	}

	fmt.Println()
	for i, item := range result.Items {
		fmt.Printf("%d. [%s] %s\n", i+1, item.Difficulty, item.Text)
		for j, opt := range item.Options {
			marker := " "
			if j == item.CorrectIndex {
				marker = "*"
			}
			fmt.Printf("   %s %c) %s\n", marker, 'a'+j, opt)
		}
		fmt.Println()
	}
}
