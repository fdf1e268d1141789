// Package config holds the on-disk configuration shape for docvec: chunker
// defaults, store location and dimension, fusion/rerank weights, the query
// enhancer's synonym dictionary path, and evaluation defaults.
//
// Loading a config file is a thin convenience on top of the library surface
// described by pkg/retrieval — every field here also has a sane zero-config
// default so callers can construct a Config in code without ever reading a
// file from disk.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete docvec configuration.
type Config struct {
	Chunk   ChunkConfig   `yaml:"chunk" json:"chunk"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Fusion  FusionConfig  `yaml:"fusion" json:"fusion"`
	Rerank  RerankConfig  `yaml:"rerank" json:"rerank"`
	Enhance EnhanceConfig `yaml:"enhance" json:"enhance"`
	Eval    EvalConfig    `yaml:"eval" json:"eval"`
}

// ChunkConfig configures the structural chunker.
type ChunkConfig struct {
	Strategy              string `yaml:"strategy" json:"strategy"`
	MaxChunkSize          int    `yaml:"max_chunk_size" json:"max_chunk_size"`
	MinChunkSize          int    `yaml:"min_chunk_size" json:"min_chunk_size"`
	ChunkOverlap          int    `yaml:"chunk_overlap" json:"chunk_overlap"`
	MaxHeadingDepth       int    `yaml:"max_heading_depth" json:"max_heading_depth"`
	IncludeHeadingContext bool   `yaml:"include_heading_context" json:"include_heading_context"`
	PreserveCodeBlocks    bool   `yaml:"preserve_code_blocks" json:"preserve_code_blocks"`
	PreserveTables        bool   `yaml:"preserve_tables" json:"preserve_tables"`
}

// StoreConfig configures the embedded vector store.
type StoreConfig struct {
	Path              string `yaml:"path" json:"path"`
	Dimension         int    `yaml:"dimension" json:"dimension"`
	DefaultCollection string `yaml:"default_collection" json:"default_collection"`
	CacheSize         int    `yaml:"cache_size" json:"cache_size"`
	LexicalBackend    string `yaml:"lexical_backend" json:"lexical_backend"` // "sqlite", "bleve", or "" (disabled)
}

// FusionConfig configures fusion between vector and lexical candidate lists
// inside the Retrieve pipeline stage.
type FusionConfig struct {
	VectorWeight  float64 `yaml:"vector_weight" json:"vector_weight"`
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`
	RRFConstant   int     `yaml:"rrf_constant" json:"rrf_constant"`
}

// RerankConfig configures the multi-factor reranker's signal weights.
// The five weights are expected to sum to 1.0.
type RerankConfig struct {
	VectorSimilarityWeight  float64 `yaml:"vector_similarity_weight" json:"vector_similarity_weight"`
	ContentRelevanceWeight  float64 `yaml:"content_relevance_weight" json:"content_relevance_weight"`
	TitleBoostWeight        float64 `yaml:"title_boost_weight" json:"title_boost_weight"`
	RecencyWeight           float64 `yaml:"recency_weight" json:"recency_weight"`
	MetadataRelevanceWeight float64 `yaml:"metadata_relevance_weight" json:"metadata_relevance_weight"`
	ExactMatchBonus         float64 `yaml:"exact_match_bonus" json:"exact_match_bonus"`
}

// EnhanceConfig configures the query enhancer.
type EnhanceConfig struct {
	SynonymDictPath string `yaml:"synonym_dict_path" json:"synonym_dict_path"`
	MaxExpansions   int    `yaml:"max_expansions" json:"max_expansions"`
	EnablePatterns  bool   `yaml:"enable_patterns" json:"enable_patterns"`
}

// EvalConfig configures the evaluation and regression harness.
type EvalConfig struct {
	KValues           []int   `yaml:"k_values" json:"k_values"`
	MaxConcurrency    int     `yaml:"max_concurrency" json:"max_concurrency"`
	RegressionEpsilon float64 `yaml:"regression_epsilon" json:"regression_epsilon"`
	PermutationTrials int     `yaml:"permutation_trials" json:"permutation_trials"`
}

// Default returns the zero-config default configuration.
func Default() *Config {
	return &Config{
		Chunk: ChunkConfig{
			Strategy:              "hybrid",
			MaxChunkSize:          2000,
			MinChunkSize:          64,
			ChunkOverlap:          200,
			MaxHeadingDepth:       6,
			IncludeHeadingContext: true,
			PreserveCodeBlocks:    true,
			PreserveTables:        true,
		},
		Store: StoreConfig{
			Path:              "docvec.db",
			Dimension:         384,
			DefaultCollection: "default",
			CacheSize:         10000,
			LexicalBackend:    "sqlite",
		},
		Fusion: FusionConfig{
			VectorWeight:  0.65,
			LexicalWeight: 0.35,
			RRFConstant:   60,
		},
		Rerank: RerankConfig{
			VectorSimilarityWeight:  0.4,
			ContentRelevanceWeight:  0.25,
			TitleBoostWeight:        0.15,
			RecencyWeight:           0.1,
			MetadataRelevanceWeight: 0.1,
			ExactMatchBonus:         0.05,
		},
		Enhance: EnhanceConfig{
			MaxExpansions:  5,
			EnablePatterns: true,
		},
		Eval: EvalConfig{
			KValues:           []int{1, 3, 5, 10},
			MaxConcurrency:    8,
			RegressionEpsilon: 0.02,
			PermutationTrials: 1000,
		},
	}
}

// Load reads a YAML configuration file, applying it on top of Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks configuration invariants shared across the chunker,
// store, fusion, and reranker components.
func (c *Config) Validate() error {
	if c.Chunk.MinChunkSize <= 0 || c.Chunk.MinChunkSize > c.Chunk.MaxChunkSize {
		return fmt.Errorf("chunk.min_chunk_size must be > 0 and <= max_chunk_size")
	}
	if c.Chunk.ChunkOverlap < 0 || c.Chunk.ChunkOverlap >= c.Chunk.MaxChunkSize {
		return fmt.Errorf("chunk.chunk_overlap must be >= 0 and < max_chunk_size")
	}
	if c.Chunk.MaxHeadingDepth < 1 || c.Chunk.MaxHeadingDepth > 6 {
		return fmt.Errorf("chunk.max_heading_depth must be between 1 and 6")
	}

	if c.Store.Dimension <= 0 {
		return fmt.Errorf("store.dimension must be positive, got %d", c.Store.Dimension)
	}

	if sum := c.Fusion.VectorWeight + c.Fusion.LexicalWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("fusion.vector_weight + fusion.lexical_weight must equal 1.0, got %.2f", sum)
	}

	rerankSum := c.Rerank.VectorSimilarityWeight + c.Rerank.ContentRelevanceWeight +
		c.Rerank.TitleBoostWeight + c.Rerank.RecencyWeight + c.Rerank.MetadataRelevanceWeight
	if math.Abs(rerankSum-1.0) > 0.01 {
		return fmt.Errorf("rerank weights (excluding exact_match_bonus) must sum to 1.0, got %.2f", rerankSum)
	}

	return nil
}
