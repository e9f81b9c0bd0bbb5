package tghtml

// FormatOptions holds options for Format and FormatHTML.
type FormatOptions struct {
	MaxLength     int
	StripComments bool
}

// Option is a function that configures FormatOptions.
type Option func(*FormatOptions)

// WithMaxLength sets the maximum chunk length in UTF-16 code units.
func WithMaxLength(n int) Option {
	return func(opts *FormatOptions) {
		opts.MaxLength = n
	}
}

// WithStripComments sets whether HTML comments are removed before splitting.
func WithStripComments(enable bool) Option {
	return func(opts *FormatOptions) {
		opts.StripComments = enable
	}
}

// WithConfig copies the values of a Config into the options.
func WithConfig(config *Config) Option {
	return func(opts *FormatOptions) {
		if config == nil {
			return
		}
		opts.MaxLength = config.MaxMessageLength
		opts.StripComments = config.StripComments
	}
}

// defaultFormatOptions returns the default format options.
func defaultFormatOptions() *FormatOptions {
	cfg := DefaultConfig()
	return &FormatOptions{
		MaxLength:     cfg.MaxMessageLength,
		StripComments: cfg.StripComments,
	}
}

// applyOptions applies the given options to the default options.
func applyOptions(opts ...Option) *FormatOptions {
	options := defaultFormatOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}
