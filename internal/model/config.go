package model

// Config holds the complete tool configuration.
// Populated from defaults, then config file, then env vars, then flags.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Vector    VectorConfig    `yaml:"vector" json:"vector"`
	Corpus    CorpusConfig    `yaml:"corpus" json:"corpus"`
	Engine    EngineConfig    `yaml:"engine" json:"engine"`
}

// LLMConfig configures the text-generation service
type LLMConfig struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string `yaml:"provider" json:"provider"`

	// Models is the prioritized fallback list; the first model returning a
	// non-empty response wins
	Models []string `yaml:"models" json:"models"`

	APIKey  string `yaml:"api_key,omitempty" json:"-"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Timeout per API request, seconds
	Timeout int `yaml:"timeout" json:"timeout"`

	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// RequestsPerSecond throttles outbound service calls (0 = unlimited)
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// EmbeddingConfig configures the embedding service
type EmbeddingConfig struct {
	Model string `yaml:"model" json:"model"`

	// CacheDir enables the layered (memory+disk) embedding cache when set
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
}

// VectorConfig configures the vector similarity search service
type VectorConfig struct {
	APIKey    string `yaml:"api_key,omitempty" json:"-"`
	Host      string `yaml:"host" json:"host"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Timeout   int    `yaml:"timeout" json:"timeout"`
}

// CorpusConfig configures the curated-item document store and retrieval caps
type CorpusConfig struct {
	DBPath string `yaml:"db_path" json:"db_path"`

	// FocusedTopK caps results for narrow per-context searches
	FocusedTopK int `yaml:"focused_top_k" json:"focused_top_k"`

	// BroadTopK caps results for vocabulary-discovery sampling
	BroadTopK int `yaml:"broad_top_k" json:"broad_top_k"`
}

// EngineConfig tunes the generation scheduler
type EngineConfig struct {
	// Strategy selects the retrieval context builder:
	// "plain", "permutation", or "feedback"
	Strategy string `yaml:"strategy" json:"strategy"`

	// Evaluate enables the paper evaluator feedback loop
	Evaluate bool `yaml:"evaluate" json:"evaluate"`

	// SynthAttempts bounds in-slot retries on invalid/duplicate output
	SynthAttempts int `yaml:"synth_attempts" json:"synth_attempts"`

	// InspirationCap limits inspirations included in one synthesis prompt
	InspirationCap int `yaml:"inspiration_cap" json:"inspiration_cap"`

	// AvoidListCap tail-truncates the avoid-list to bound prompt size
	AvoidListCap int `yaml:"avoid_list_cap" json:"avoid_list_cap"`

	// Early-stop score bars when the evaluator is active
	MinOverallScore   int `yaml:"min_overall_score" json:"min_overall_score"`
	MinDiversityScore int `yaml:"min_diversity_score" json:"min_diversity_score"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Models:            []string{"gpt-4o", "gpt-4o-mini"},
			Timeout:           60,
			MaxTokens:         2000,
			RequestsPerSecond: 2,
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Vector: VectorConfig{
			Namespace: "items",
			Timeout:   30,
		},
		Corpus: CorpusConfig{
			DBPath:      "corpus.db",
			FocusedTopK: 50,
			BroadTopK:   300,
		},
		Engine: EngineConfig{
			Strategy:          "permutation",
			Evaluate:          false,
			SynthAttempts:     3,
			InspirationCap:    6,
			AvoidListCap:      12,
			MinOverallScore:   7,
			MinDiversityScore: 6,
		},
	}
}
