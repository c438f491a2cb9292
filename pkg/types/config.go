package types

import (
	"strings"
	"time"
)

// OperationMode governs when structural changes notify the UI layer.
type OperationMode string

// Operation modes.
const (
	ModeHeadless    OperationMode = "headless"
	ModeReadonly    OperationMode = "readonly"
	ModeInteractive OperationMode = "interactive"
)

var knownModes = map[OperationMode]bool{
	ModeHeadless:    true,
	ModeReadonly:    true,
	ModeInteractive: true,
}

// Config holds all settings for a grid instance.
type Config struct {
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Smart   SmartConfig   `json:"smart" yaml:"smart" mapstructure:"smart"`
	Notify  NotifyConfig  `json:"notify" yaml:"notify" mapstructure:"notify"`
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// StoreConfig holds row store settings.
type StoreConfig struct {
	// BatchSize is the chunk size for bulk appends and imports.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	// StreamBatchSize is the default batch size for StreamRows.
	StreamBatchSize int `json:"stream_batch_size" yaml:"stream_batch_size" mapstructure:"stream_batch_size"`
	// ParallelFilterThreshold is the row count above which the filtered
	// view is built in parallel chunks. Zero disables parallel builds.
	ParallelFilterThreshold int `json:"parallel_filter_threshold" yaml:"parallel_filter_threshold" mapstructure:"parallel_filter_threshold"`
	// MinRowHeight and MaxRowHeight bound display row height.
	MinRowHeight float64 `json:"min_row_height" yaml:"min_row_height" mapstructure:"min_row_height"`
	MaxRowHeight float64 `json:"max_row_height" yaml:"max_row_height" mapstructure:"max_row_height"`
}

// SearchConfig holds search engine defaults.
type SearchConfig struct {
	RegexTimeout   time.Duration `json:"regex_timeout" yaml:"regex_timeout" mapstructure:"regex_timeout"`
	FuzzyThreshold float64       `json:"fuzzy_threshold" yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// SmartConfig holds the invariant policy applied after structural changes.
type SmartConfig struct {
	Enabled             bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MinimumRows         int  `json:"minimum_rows" yaml:"minimum_rows" mapstructure:"minimum_rows"`
	AutoExpand          bool `json:"auto_expand" yaml:"auto_expand" mapstructure:"auto_expand"`
	AutoDelete          bool `json:"auto_delete" yaml:"auto_delete" mapstructure:"auto_delete"`
	AlwaysKeepLastEmpty bool `json:"always_keep_last_empty" yaml:"always_keep_last_empty" mapstructure:"always_keep_last_empty"`
}

// NotifyConfig selects the operation mode.
type NotifyConfig struct {
	Mode OperationMode `json:"mode" yaml:"mode" mapstructure:"mode"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Defaults.
const (
	DefaultBatchSize               = 1000
	DefaultStreamBatchSize         = 500
	DefaultParallelFilterThreshold = 50000
	DefaultMinRowHeight            = 20
	DefaultMaxRowHeight            = 400
	DefaultRegexTimeout            = 100 * time.Millisecond
	DefaultFuzzyThreshold          = 0.7
	MaxRegexTimeout                = 10 * time.Second
)

// DefaultConfig returns a Config with every setting at its default.
// Smart operations are off and the mode is headless.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			BatchSize:               DefaultBatchSize,
			StreamBatchSize:         DefaultStreamBatchSize,
			ParallelFilterThreshold: DefaultParallelFilterThreshold,
			MinRowHeight:            DefaultMinRowHeight,
			MaxRowHeight:            DefaultMaxRowHeight,
		},
		Search: SearchConfig{
			RegexTimeout:   DefaultRegexTimeout,
			FuzzyThreshold: DefaultFuzzyThreshold,
		},
		Notify:  NotifyConfig{Mode: ModeHeadless},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Validate checks that the Config is well-formed. It returns a
// *ConfigurationError naming the first bad field.
func (c Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if c.Smart.MinimumRows < 0 {
		return &ConfigurationError{Field: "smart.minimum_rows", Err: ErrMinimumRowsInvalid}
	}
	if c.Notify.Mode != "" && !knownModes[c.Notify.Mode] {
		return &ConfigurationError{Field: "notify.mode", Err: ErrModeUnknown}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigurationError{Field: "logging.level", Err: ErrLoggingLevelUnknown}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return &ConfigurationError{Field: "logging.format", Err: ErrLoggingFormatUnknown}
	}
	return nil
}

// Validate checks store settings.
func (c StoreConfig) Validate() error {
	if c.BatchSize <= 0 {
		return &ConfigurationError{Field: "store.batch_size", Err: ErrBatchSizeInvalid}
	}
	if c.StreamBatchSize <= 0 {
		return &ConfigurationError{Field: "store.stream_batch_size", Err: ErrBatchSizeInvalid}
	}
	if c.ParallelFilterThreshold < 0 {
		return &ConfigurationError{Field: "store.parallel_filter_threshold", Err: ErrParallelThresholdNeg}
	}
	if c.MinRowHeight <= 0 || c.MaxRowHeight < c.MinRowHeight {
		return &ConfigurationError{Field: "store.row_height", Err: ErrRowHeightInvalid}
	}
	return nil
}

// Validate checks search settings.
func (c SearchConfig) Validate() error {
	if c.RegexTimeout <= 0 || c.RegexTimeout > MaxRegexTimeout {
		return &ConfigurationError{Field: "search.regex_timeout", Err: ErrTimeoutInvalid}
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return &ConfigurationError{Field: "search.fuzzy_threshold", Err: ErrThresholdInvalid}
	}
	return nil
}

// ParseOperationMode resolves a mode name.
func ParseOperationMode(s string) (OperationMode, error) {
	m := OperationMode(strings.ToLower(strings.TrimSpace(s)))
	if !knownModes[m] {
		return "", &ConfigurationError{Field: "notify.mode", Err: ErrModeUnknown}
	}
	return m, nil
}
