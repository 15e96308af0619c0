package cli

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/itemforge/itemforge/internal/corpus"
)

var corpusFlags struct {
	dbPath    string
	workers   int
	skipIndex bool
}

// corpusCmd represents the corpus command
var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the curated item corpus",
	Long: `Manage the corpus of curated exam items that generation draws
inspiration from: bulk-load seed files and inspect what is stored.`,
}

var corpusLoadCmd = &cobra.Command{
	Use:   "load [files...]",
	Short: "Load curated items from YAML seed files",
	Long: `Load curated items into the corpus database and index them in the
vector store. Each seed file is a YAML list of items:

  - id: bio-001
    subject: biology
    chapter: cells
    text: Which organelle produces most of the cell's ATP?
    options: [Mitochondrion, Ribosome, Nucleus, Golgi apparatus]
    correct_index: 0
    topics: [cell biology, organelles]
    tags: [energy]
    difficulty: easy

Pass --skip-index to populate only the database, e.g. when the vector
store is not reachable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCorpusLoad,
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus item counts by subject and difficulty",
	RunE:  runCorpusStats,
}

func init() {
	corpusLoadCmd.Flags().StringVar(&corpusFlags.dbPath, "db", "", "corpus database path")
	corpusLoadCmd.Flags().IntVar(&corpusFlags.workers, "workers", 4, "parallel embedding workers")
	corpusLoadCmd.Flags().BoolVar(&corpusFlags.skipIndex, "skip-index", false, "load the database only, skip embedding and indexing")
	corpusStatsCmd.Flags().StringVar(&corpusFlags.dbPath, "db", "", "corpus database path")

	corpusCmd.AddCommand(corpusLoadCmd)
	corpusCmd.AddCommand(corpusStatsCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusLoad(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if corpusFlags.dbPath != "" {
		cfg.Corpus.DBPath = corpusFlags.dbPath
	}

	var items []corpus.Item
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var batch []corpus.Item
		if err := yaml.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		items = append(items, batch...)
	}
	if len(items) == 0 {
		return fmt.Errorf("no items found in %d seed file(s)", len(args))
	}

	store, err := corpus.OpenSQLite(cfg.Corpus.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var embedder corpus.Embedder
	var index *corpus.VectorIndex
	if !corpusFlags.skipIndex {
		embedKey := os.Getenv("OPENAI_API_KEY")
		embedder, err = corpus.NewOpenAIEmbedder(embedKey, "", cfg.Embedding.Model)
		if err != nil {
			return err
		}
		index, err = corpus.NewVectorIndex(corpus.VectorIndexConfig{
			APIKey:    cfg.Vector.APIKey,
			Host:      cfg.Vector.Host,
			Namespace: cfg.Vector.Namespace,
			Timeout:   time.Duration(cfg.Vector.Timeout) * time.Second,
		})
		if err != nil {
			return err
		}
	}

	indexer := corpus.NewIndexer(store, embedder, index, corpusFlags.workers, slog.Default())
	result, err := indexer.Load(cmd.Context(), items)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d item(s): %d inserted, %d indexed, %d failed\n",
		len(items), result.Inserted, result.Indexed, result.Failed)
	return nil
}

func runCorpusStats(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if corpusFlags.dbPath != "" {
		cfg.Corpus.DBPath = corpusFlags.dbPath
	}

	store, err := corpus.OpenSQLite(cfg.Corpus.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("Corpus is empty.")
		return nil
	}

	subjects := make([]string, 0, len(stats))
	for s := range stats {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		total := 0
		for _, n := range stats[subject] {
			total += n
		}
		fmt.Printf("%s (%d items)\n", subject, total)

		difficulties := make([]string, 0, len(stats[subject]))
		for d := range stats[subject] {
			difficulties = append(difficulties, d)
		}
		sort.Strings(difficulties)
		for _, d := range difficulties {
			fmt.Printf("  %-12s %d\n", d, stats[subject][d])
		}
	}
	return nil
}
