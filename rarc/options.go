package rarc

import (
	"log/slog"

	"github.com/meigma/cube/internal/format"
)

// Progress reporting types shared with the other cube packages.
type (
	ProgressEvent = format.ProgressEvent
	ProgressStage = format.ProgressStage
	ProgressFunc  = format.ProgressFunc
)

// Progress stages.
const (
	StageEnumerating = format.StageEnumerating
	StageCompressing = format.StageCompressing
	StageExtracting  = format.StageExtracting
)

// DefaultMaxFiles is the file limit used by FromFS when none is set. Every
// file needs a 16-bit ID distinct from the directory marker 0xFFFF.
const DefaultMaxFiles = 0xFFFE

// BuildOption configures FromFS.
type BuildOption func(*buildConfig)

type buildConfig struct {
	maxFiles  int
	fileFlags uint8
	layout    Layout
	progress  ProgressFunc
	logger    *slog.Logger
}

// BuildWithMaxFiles limits how many files FromFS will add.
// Zero uses DefaultMaxFiles; negative disables the limit.
func BuildWithMaxFiles(n int) BuildOption {
	return func(c *buildConfig) {
		c.maxFiles = n
	}
}

// BuildWithFileFlags sets the flags of every added file.
// The default is DefaultFileFlags.
func BuildWithFileFlags(flags uint8) BuildOption {
	return func(c *buildConfig) {
		c.fileFlags = flags
	}
}

// BuildWithLayout sets the layout of the built archive.
func BuildWithLayout(l Layout) BuildOption {
	return func(c *buildConfig) {
		c.layout = l
	}
}

// BuildWithProgress sets a callback for progress updates.
func BuildWithProgress(fn ProgressFunc) BuildOption {
	return func(c *buildConfig) {
		c.progress = fn
	}
}

// BuildWithLogger sets a logger for build output.
func BuildWithLogger(logger *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	overwrite  bool
	decompress bool
	rootDir    bool
	progress   ProgressFunc
	logger     *slog.Logger
}

// ExtractWithOverwrite replaces existing files. By default they are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithDecompress writes Yaz0-compressed entries decompressed.
func ExtractWithDecompress(decompress bool) ExtractOption {
	return func(c *extractConfig) {
		c.decompress = decompress
	}
}

// ExtractWithRootDir places the tree inside a directory named after the
// root directory instead of directly in destDir.
func ExtractWithRootDir(enabled bool) ExtractOption {
	return func(c *extractConfig) {
		c.rootDir = enabled
	}
}

// ExtractWithProgress sets a callback for progress updates.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}

// ExtractWithLogger sets a logger for extract output.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(c *extractConfig) {
		c.logger = logger
	}
}

func logOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
