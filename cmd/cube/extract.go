package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/cube/bti"
	"github.com/meigma/cube/internal/bundle"
	"github.com/meigma/cube/internal/fsutil"
	"github.com/meigma/cube/rarc"
	"github.com/meigma/cube/szs"
	"github.com/meigma/cube/yaz0"
)

const extractLong = `
Extract .szs, .arc and .rarc archives. Each archive is written to a
directory named after the file without its extension, below --out.

Archives stored inside an archive are extracted next to themselves, into a
directory named after the nested file. Use --no-nested to keep them packed.

With --bti, BTI textures are also converted to PNG files named
<texture>.bti.png. A standalone .bti input is always converted.

Archives are processed in parallel; --jobs bounds the number in flight.
`

type cmdExtract struct {
	Out        string `long:"out" short:"o" default:"." description:"Directory to extract into"`
	BTI        bool   `long:"bti" description:"Convert BTI textures to PNG"`
	Overwrite  bool   `long:"overwrite" description:"Replace existing files"`
	Decompress bool   `long:"decompress" description:"Write Yaz0-compressed entries decompressed"`
	NoNested   bool   `long:"no-nested" description:"Do not extract archives found inside archives"`
	Bundle     string `long:"bundle" description:"Also write every extracted tree to this .tar.zst file"`
	Jobs       int    `long:"jobs" short:"j" default:"4" description:"Number of archives to extract in parallel"`
	MaxSize    string `long:"max-size" default:"256MiB" description:"Largest decompressed archive accepted"`
	Args       struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes"`
}

func (cmd *cmdExtract) Execute([]string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return cmd.run(ctx, baseCfg.Log.newLogger())
}

func (cmd *cmdExtract) run(ctx context.Context, log *slog.Logger) (err error) {
	maxSize, err := humanize.ParseBytes(cmd.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid --max-size: %w", err)
	}

	x := &extractor{
		cfg:   cmd,
		log:   log,
		codec: szs.New(szs.WithLogger(log), szs.WithDecodeOptions(yaz0.DecodeWithMaxSize(maxSize))),
	}
	if cmd.Bundle != "" {
		f, createErr := os.Create(cmd.Bundle)
		if createErr != nil {
			return createErr
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		if x.bundle, err = bundle.NewWriter(f, bundle.WithNameMapper(rarc.DecodeName), bundle.WithLogger(log)); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cmd.Jobs, 1))
	for _, file := range cmd.Args.Files {
		g.Go(func() error {
			return x.extractFile(gctx, file)
		})
	}
	err = g.Wait()
	if x.bundle != nil {
		err = errors.Join(err, x.bundle.Close())
	}
	if err != nil {
		return err
	}

	log.Info("extraction complete",
		"archives", x.archives.Load(),
		"files", x.files.Load(),
		"size", humanize.IBytes(x.bytes.Load()))
	return nil
}

// extractor holds the state shared by concurrent archive extractions.
type extractor struct {
	cfg    *cmdExtract
	log    *slog.Logger
	codec  *szs.Codec
	bundle *bundle.Writer

	archives atomic.Int64
	files    atomic.Int64
	bytes    atomic.Uint64
}

func (x *extractor) extractFile(ctx context.Context, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	name := filepath.Base(file)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	if isTexture(name) {
		return x.writePNG(data, filepath.Join(x.cfg.Out, stem+".png"))
	}
	a, err := x.codec.Unpack(data)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return x.extractArchive(ctx, a, filepath.Join(x.cfg.Out, stem), stem)
}

// extractArchive writes a below dest, then descends into nested archives
// and converts textures. prefix is the tree's location in the bundle.
func (x *extractor) extractArchive(ctx context.Context, a *rarc.Archive, dest, prefix string) error {
	stats, err := a.Extract(ctx, dest,
		rarc.ExtractWithOverwrite(x.cfg.Overwrite),
		rarc.ExtractWithDecompress(x.cfg.Decompress),
		rarc.ExtractWithLogger(x.log),
	)
	if err != nil {
		return fmt.Errorf("extract to %s: %w", dest, err)
	}
	x.archives.Add(1)
	x.files.Add(int64(stats.Files))
	x.bytes.Add(stats.Bytes)
	x.log.Info("extracted archive",
		"root", rarc.DisplayName(a.Root.Name),
		"dest", dest,
		"files", stats.Files,
		"skipped", stats.Skipped,
		"size", humanize.IBytes(stats.Bytes))

	if x.bundle != nil {
		if _, err := x.bundle.AddFS(ctx, prefix, a); err != nil {
			return fmt.Errorf("bundle %s: %w", prefix, err)
		}
	}

	for p, f := range a.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		local, err := localPath(p)
		if err != nil {
			return err
		}
		switch name := path.Base(local); {
		case !x.cfg.NoNested && isArchive(name):
			data, err := f.Decompressed()
			if err != nil {
				x.log.Warn("skipping nested archive", "path", local, "error", err)
				continue
			}
			nested, err := x.codec.Unpack(data)
			if err != nil {
				x.log.Warn("skipping nested archive", "path", local, "error", err)
				continue
			}
			stem := strings.TrimSuffix(local, path.Ext(local))
			if err := x.extractArchive(ctx, nested, filepath.Join(dest, filepath.FromSlash(stem)), path.Join(prefix, stem)); err != nil {
				return err
			}
		case x.cfg.BTI && isTexture(name):
			data, err := f.Decompressed()
			if err == nil {
				err = x.writePNG(data, filepath.Join(dest, filepath.FromSlash(local))+".png")
			}
			if err != nil {
				x.log.Warn("skipping texture", "path", local, "error", err)
			}
		}
	}
	return nil
}

func (x *extractor) writePNG(data []byte, target string) error {
	img, err := bti.Decode(data)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.NRGBA); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if err := fsutil.WriteFile(target, buf.Bytes()); err != nil {
		return err
	}
	x.log.Debug("converted texture", "dest", target, "format", img.Format.String(), "width", img.Width, "height", img.Height)
	return nil
}

// localPath decodes every element of an archive path from Shift-JIS.
func localPath(p string) (string, error) {
	elems := strings.Split(p, "/")
	for i, e := range elems {
		decoded, err := rarc.DecodeName(e)
		if err != nil {
			return "", err
		}
		elems[i] = decoded
	}
	return strings.Join(elems, "/"), nil
}

// displayPath decodes an archive path for display, quoting elements that
// are not valid Shift-JIS.
func displayPath(p string) string {
	elems := strings.Split(p, "/")
	for i, e := range elems {
		elems[i] = rarc.DisplayName(e)
	}
	return strings.Join(elems, "/")
}

func isArchive(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".szs", ".arc", ".rarc":
		return true
	}
	return false
}

func isTexture(name string) bool {
	return strings.EqualFold(path.Ext(name), ".bti")
}
