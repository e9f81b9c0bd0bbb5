package tghtml

import (
	"sync"
)

// Config holds the formatting defaults shared by Format and FormatHTML.
type Config struct {
	// MaxMessageLength 每个分块的最大 UTF-16 code units
	MaxMessageLength int
	// StripComments 是否在拆分前移除 HTML 注释
	StripComments bool
}

var (
	defaultConfig     *Config
	defaultConfigOnce sync.Once
)

// DefaultConfig returns the default formatting configuration (singleton).
// Callers must not modify the returned value; copy it first.
func DefaultConfig() *Config {
	defaultConfigOnce.Do(func() {
		defaultConfig = &Config{
			MaxMessageLength: MaxMessageLength,
			StripComments:    true,
		}
	})
	return defaultConfig
}
