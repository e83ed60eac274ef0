package main

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/cube/bti"
	"github.com/meigma/cube/internal/fsutil"
)

const btiLong = `
Decode the first mip level of a BTI texture and write it as PNG. The output
defaults to the input path with its extension replaced by .png.
`

type cmdBTI struct {
	MaxPixels int `long:"max-pixels" default:"16777216" description:"Largest texture accepted, in pixels; 0 disables the limit"`
	Args      struct {
		In  string `positional-arg-name:"IN" required:"yes"`
		Out string `positional-arg-name:"OUT"`
	} `positional-args:"yes"`
}

func (cmd *cmdBTI) Execute([]string) error {
	return cmd.run(baseCfg.Log.newLogger())
}

func (cmd *cmdBTI) run(log *slog.Logger) error {
	data, err := os.ReadFile(cmd.Args.In)
	if err != nil {
		return err
	}
	img, err := bti.Decode(data, bti.WithMaxPixels(cmd.MaxPixels))
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Args.In, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img.NRGBA); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	out := cmd.Args.Out
	if out == "" {
		out = strings.TrimSuffix(cmd.Args.In, ".bti") + ".png"
	}
	if err := fsutil.WriteFile(out, buf.Bytes()); err != nil {
		return err
	}
	log.Info("converted texture",
		"dest", out,
		"format", img.Format.String(),
		"width", img.Width,
		"height", img.Height,
		"mips", img.MipCount)
	return nil
}
