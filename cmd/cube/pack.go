package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/meigma/cube/cache/disk"
	"github.com/meigma/cube/internal/fsutil"
	"github.com/meigma/cube/rarc"
	"github.com/meigma/cube/szs"
	"github.com/meigma/cube/yaz0"
)

const packLong = `
Pack a directory into a RARC archive, compressed with Yaz0 unless --raw is
given. The output defaults to <dir>.szs next to the directory, or <dir>.arc
with --raw.

The archive's root directory is named after the input directory; --root
overrides it. File names are stored in Shift-JIS.

--nintendo writes "." and ".." after the children of each directory and
numbers directories breadth-first, as the original game archives do.

With --cache-dir, compressed output is cached by the digest of the
uncompressed archive and the encoder settings, so repacking an unchanged
tree skips compression.
`

type cmdPack struct {
	Out      string `long:"out" short:"o" description:"Output file"`
	Raw      bool   `long:"raw" description:"Write an uncompressed RARC archive"`
	Window   int    `long:"window" default:"4096" description:"Yaz0 match window in bytes"`
	Lazy     bool   `long:"lazy" description:"Use lookahead matching for slightly smaller output"`
	Nintendo bool   `long:"nintendo" description:"Use the entry and node ordering of Nintendo's tools"`
	Root     string `long:"root" description:"Name of the archive's root directory"`
	CacheDir string `long:"cache-dir" env:"CUBE_CACHE_DIR" description:"Directory for cached compressed archives"`
	CacheMax string `long:"cache-max" default:"1GiB" description:"Size limit of the cache directory"`
	Args     struct {
		Dir string `positional-arg-name:"DIR" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *cmdPack) Execute([]string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return cmd.run(ctx, baseCfg.Log.newLogger())
}

func (cmd *cmdPack) run(ctx context.Context, log *slog.Logger) error {
	dir, err := filepath.Abs(cmd.Args.Dir)
	if err != nil {
		return err
	}
	root := cmd.Root
	if root == "" {
		root = filepath.Base(dir)
	}
	var layout rarc.Layout
	if cmd.Nintendo {
		layout = rarc.Layout{DotEntries: rarc.DotEntriesLast, NodeOrder: rarc.NodeOrderBreadthFirst}
	}

	a, err := rarc.FromFS(ctx, os.DirFS(dir), root,
		rarc.BuildWithLayout(layout),
		rarc.BuildWithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	var out []byte
	if cmd.Raw {
		out, err = a.MarshalBinary()
	} else {
		var opts []szs.Option
		if opts, err = cmd.codecOptions(log); err == nil {
			out, err = szs.New(opts...).Pack(a)
		}
	}
	if err != nil {
		return err
	}

	target := cmd.output(dir)
	if err := fsutil.WriteFile(target, out); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	stats := a.Stats()
	log.Info("packed archive",
		"dest", target,
		"dirs", stats.Dirs,
		"files", stats.Files,
		"input", humanize.IBytes(stats.DataBytes),
		"output", humanize.IBytes(uint64(len(out))))
	return nil
}

func (cmd *cmdPack) codecOptions(log *slog.Logger) ([]szs.Option, error) {
	level := yaz0.LevelGreedy
	if cmd.Lazy {
		level = yaz0.LevelLookahead
	}
	opts := []szs.Option{
		szs.WithLogger(log),
		szs.WithCompression(yaz0.WithWindowSize(cmd.Window), yaz0.WithLevel(level)),
	}
	if cmd.CacheDir == "" {
		return opts, nil
	}

	limit, err := humanize.ParseBytes(cmd.CacheMax)
	if err != nil {
		return nil, fmt.Errorf("invalid --cache-max: %w", err)
	}
	//nolint:gosec // humanize sizes fit in int64 for any sane limit
	c, err := disk.New(cmd.CacheDir, disk.WithMaxBytes(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return append(opts, szs.WithCache(c)), nil
}

func (cmd *cmdPack) output(dir string) string {
	if cmd.Out != "" {
		return cmd.Out
	}
	ext := ".szs"
	if cmd.Raw {
		ext = ".arc"
	}
	return dir + ext
}
