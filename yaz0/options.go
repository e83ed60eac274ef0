package yaz0

// Level selects how hard the encoder looks for matches.
type Level uint8

const (
	// LevelGreedy takes the longest match at every position.
	LevelGreedy Level = iota

	// LevelLookahead defers a match by one byte when the next position
	// offers a strictly longer one.
	LevelLookahead
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelGreedy:
		return "greedy"
	case LevelLookahead:
		return "lookahead"
	default:
		return "unknown"
	}
}

// DefaultMaxSize is the default limit on the declared decoded size (256MB).
const DefaultMaxSize = 256 << 20

// config holds encoder settings.
type config struct {
	window    int
	minMatch  int
	maxMatch  int
	level     Level
	alignment uint32
}

// Option configures Compress.
type Option func(*config)

// WithWindowSize sets how far back the encoder searches for matches.
// Values are clamped to [1, MaxDistance]. Defaults to MaxDistance.
func WithWindowSize(n int) Option {
	return func(c *config) {
		c.window = n
	}
}

// WithMinMatch sets the shortest match the encoder will emit.
// Values are clamped to [MinMatch, MaxMatch]. Defaults to MinMatch.
func WithMinMatch(n int) Option {
	return func(c *config) {
		c.minMatch = n
	}
}

// WithMaxMatch caps the length of emitted matches.
// Values are clamped to [min match, MaxMatch]. Defaults to MaxMatch.
func WithMaxMatch(n int) Option {
	return func(c *config) {
		c.maxMatch = n
	}
}

// WithLevel selects the match selection strategy (default: LevelGreedy).
func WithLevel(l Level) Option {
	return func(c *config) {
		c.level = l
	}
}

// WithAlignment sets the value written to the header's alignment word.
func WithAlignment(a uint32) Option {
	return func(c *config) {
		c.alignment = a
	}
}

func newConfig(opts []Option) config {
	c := config{
		window:   MaxDistance,
		minMatch: MinMatch,
		maxMatch: MaxMatch,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.window = clamp(c.window, 1, MaxDistance)
	c.minMatch = clamp(c.minMatch, MinMatch, MaxMatch)
	c.maxMatch = clamp(c.maxMatch, c.minMatch, MaxMatch)
	return c
}

// Params returns a stable description of the encoder settings selected by
// opts. Two option sets with equal Params produce identical output.
func Params(opts ...Option) string {
	c := newConfig(opts)
	return fmtParams(c)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// decodeConfig holds decoder settings.
type decodeConfig struct {
	maxSize uint64
}

// DecodeOption configures Decompress.
type DecodeOption func(*decodeConfig)

// DecodeWithMaxSize limits the declared decoded size Decompress will
// allocate. Set limit to 0 to disable the limit.
func DecodeWithMaxSize(limit uint64) DecodeOption {
	return func(c *decodeConfig) {
		c.maxSize = limit
	}
}
