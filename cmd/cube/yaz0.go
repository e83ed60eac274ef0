package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/meigma/cube/internal/fsutil"
	"github.com/meigma/cube/yaz0"
)

type yaz0Args struct {
	In  string `positional-arg-name:"IN" required:"yes"`
	Out string `positional-arg-name:"OUT" required:"yes"`
}

type cmdYaz0Compress struct {
	Window    int      `long:"window" default:"4096" description:"Match window in bytes"`
	Lazy      bool     `long:"lazy" description:"Use lookahead matching"`
	Alignment uint32   `long:"alignment" description:"Alignment hint stored in the header"`
	Args      yaz0Args `positional-args:"yes"`
}

func (cmd *cmdYaz0Compress) Execute([]string) error {
	return cmd.run(baseCfg.Log.newLogger())
}

func (cmd *cmdYaz0Compress) run(log *slog.Logger) error {
	src, err := os.ReadFile(cmd.Args.In)
	if err != nil {
		return err
	}
	level := yaz0.LevelGreedy
	if cmd.Lazy {
		level = yaz0.LevelLookahead
	}
	out, err := yaz0.Compress(src,
		yaz0.WithWindowSize(cmd.Window),
		yaz0.WithLevel(level),
		yaz0.WithAlignment(cmd.Alignment))
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Args.In, err)
	}
	return writeCoded(log, "compressed", cmd.Args.Out, len(src), out)
}

type cmdYaz0Decompress struct {
	MaxSize string   `long:"max-size" default:"256MiB" description:"Largest decompressed size accepted"`
	Args    yaz0Args `positional-args:"yes"`
}

func (cmd *cmdYaz0Decompress) Execute([]string) error {
	return cmd.run(baseCfg.Log.newLogger())
}

func (cmd *cmdYaz0Decompress) run(log *slog.Logger) error {
	limit, err := humanize.ParseBytes(cmd.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid --max-size: %w", err)
	}
	src, err := os.ReadFile(cmd.Args.In)
	if err != nil {
		return err
	}
	out, err := yaz0.Decompress(src, yaz0.DecodeWithMaxSize(limit))
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Args.In, err)
	}
	return writeCoded(log, "decompressed", cmd.Args.Out, len(src), out)
}

func writeCoded(log *slog.Logger, op, target string, inLen int, out []byte) error {
	if err := fsutil.WriteFile(target, out); err != nil {
		return err
	}
	log.Info(op,
		"dest", target,
		"input", humanize.IBytes(uint64(inLen)),
		"output", humanize.IBytes(uint64(len(out))))
	return nil
}
