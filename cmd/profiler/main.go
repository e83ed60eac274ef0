// Command profiler runs cube operations in a loop over a generated stage
// tree so they can be inspected with pprof, fgprof and the execution tracer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/felixge/fgprof"

	"github.com/meigma/cube/cache"
	"github.com/meigma/cube/cache/disk"
	"github.com/meigma/cube/cache/memory"
	"github.com/meigma/cube/rarc"
	"github.com/meigma/cube/szs"
	"github.com/meigma/cube/yaz0"
)

const cacheNone = "none"

type config struct {
	mode            string
	files           int
	fileSize        int
	dirCount        int
	pattern         string
	window          int
	lazy            bool
	nintendo        bool
	dataURL         string
	dataHTTPLatency time.Duration
	dataHTTPBPS     uint64
	fgProfile       string
	duration        time.Duration
	iterations      int
	pprofAddr       string
	cpuProfile      string
	memProfile      string
	traceFile       string
	cache           string
	cacheDir        string
	extractCold     bool
	tempDir         string
	keepTemp        bool
	randomSeed      int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes   []byte
	sinkArchive *rarc.Archive
)

//nolint:gocognit,gocyclo // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	stage := filepath.Join(dir, "stage")
	if err := makeFiles(stage, cfg.files, cfg.fileSize, cfg.dirCount, cfg.pattern, cfg.randomSeed); err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}

	in, err := buildInput(stage, cfg)
	if err != nil {
		log.Fatal(err)
	}

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, in, dir)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%s elapsed=%s throughput=%s/s\n",
		cfg.mode,
		stats.ops,
		humanize.IBytes(stats.bytes),
		stats.elapsed,
		humanize.IBytes(uint64(float64(stats.bytes)/stats.elapsed.Seconds())),
	)
}

// input holds the generated stage in every representation the modes start
// from.
type input struct {
	stage   string
	archive *rarc.Archive
	raw     []byte
	packed  []byte
}

type profileStats struct {
	ops     int
	bytes   uint64
	elapsed time.Duration
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg config, in *input, rootDir string) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount uint64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	switch cfg.mode {
	case "compress":
		opts := compressOptions(cfg)
		for shouldContinue() {
			out, err := yaz0.Compress(in.raw, opts...)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = out
			byteCount += uint64(len(in.raw))
			ops++
		}

	case "decompress":
		for shouldContinue() {
			out, err := yaz0.Decompress(in.packed)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = out
			byteCount += uint64(len(out))
			ops++
		}

	case "parse":
		for shouldContinue() {
			a, err := rarc.Parse(in.raw)
			if err != nil {
				return profileStats{}, err
			}
			sinkArchive = a
			byteCount += uint64(len(in.raw))
			ops++
		}

	case "serialize":
		for shouldContinue() {
			out, err := rarc.Serialize(in.archive)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = out
			byteCount += uint64(len(out))
			ops++
		}

	case "fromfs":
		fsys := os.DirFS(in.stage)
		for shouldContinue() {
			a, err := rarc.FromFS(context.Background(), fsys, "stage", buildOptions(cfg)...)
			if err != nil {
				return profileStats{}, err
			}
			sinkArchive = a
			byteCount += a.Stats().DataBytes
			ops++
		}

	case "pack":
		opts := []szs.Option{szs.WithCompression(compressOptions(cfg)...)}
		if cfg.cache != cacheNone {
			c, cleanup, err := newCache(cfg, rootDir)
			if err != nil {
				return profileStats{}, err
			}
			defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
			opts = append(opts, szs.WithCache(c))
		}
		codec := szs.New(opts...)
		for shouldContinue() {
			out, err := codec.Pack(in.archive)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = out
			byteCount += uint64(len(in.raw))
			ops++
		}

	case "unpack":
		for shouldContinue() {
			a, err := szs.Unpack(in.packed)
			if err != nil {
				return profileStats{}, err
			}
			sinkArchive = a
			byteCount += uint64(len(in.raw))
			ops++
		}

	case "fetch-unpack":
		if cfg.dataURL == "" {
			return profileStats{}, errors.New("fetch-unpack requires -data-url")
		}
		fetch, cleanup, err := newHTTPFetcher(cfg, in.packed)
		if err != nil {
			return profileStats{}, err
		}
		defer cleanup()
		for shouldContinue() {
			data, err := fetch(context.Background())
			if err != nil {
				return profileStats{}, err
			}
			a, err := szs.Unpack(data)
			if err != nil {
				return profileStats{}, err
			}
			sinkArchive = a
			byteCount += uint64(len(data))
			ops++
		}

	case "extract":
		dataBytes := in.archive.Stats().DataBytes
		if cfg.extractCold {
			for shouldContinue() {
				destDir := filepath.Join(rootDir, "extract", fmt.Sprintf("iter-%d", ops))
				if _, err := in.archive.Extract(context.Background(), destDir); err != nil {
					return profileStats{}, err
				}
				if err := os.RemoveAll(destDir); err != nil {
					return profileStats{}, err
				}
				byteCount += dataBytes
				ops++
			}
		} else {
			destDir := filepath.Join(rootDir, "extract")
			for shouldContinue() {
				if _, err := in.archive.Extract(context.Background(), destDir, rarc.ExtractWithOverwrite(true)); err != nil {
					return profileStats{}, err
				}
				byteCount += dataBytes
				ops++
			}
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	var dataHTTPBPS string
	flag.StringVar(&cfg.mode, "mode", "compress", "mode: compress, decompress, parse, serialize, fromfs, pack, unpack, fetch-unpack, extract")
	flag.IntVar(&cfg.files, "files", 512, "number of files")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.IntVar(&cfg.window, "window", yaz0.MaxDistance, "Yaz0 match window in bytes")
	flag.BoolVar(&cfg.lazy, "lazy", false, "use lookahead matching")
	flag.BoolVar(&cfg.nintendo, "nintendo", false, "use Nintendo entry and node ordering")
	flag.StringVar(&cfg.dataURL, "data-url", "", "HTTP URL serving the packed stage (use \"local\" to serve generated data)")
	flag.DurationVar(&cfg.dataHTTPLatency, "data-http-latency", 0, "per-request latency for HTTP fetches")
	flag.StringVar(&dataHTTPBPS, "data-http-bps", "", "bytes/sec throttle for HTTP fetches (e.g. 10MB)")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.cache, "cache", cacheNone, "pack cache: memory, disk, none")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "", "cache directory (disk cache only)")
	flag.BoolVar(&cfg.extractCold, "extract-cold", true, "extract into a fresh directory each iteration")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	if dataHTTPBPS != "" {
		bps, err := humanize.ParseBytes(dataHTTPBPS)
		if err != nil || bps == 0 {
			log.Fatalf("data-http-bps: invalid bytes-per-second %q", dataHTTPBPS)
		}
		cfg.dataHTTPBPS = bps
	}
	return cfg
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func compressOptions(cfg config) []yaz0.Option {
	level := yaz0.LevelGreedy
	if cfg.lazy {
		level = yaz0.LevelLookahead
	}
	return []yaz0.Option{yaz0.WithWindowSize(cfg.window), yaz0.WithLevel(level)}
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func buildOptions(cfg config) []rarc.BuildOption {
	if !cfg.nintendo {
		return nil
	}
	return []rarc.BuildOption{rarc.BuildWithLayout(rarc.Layout{
		DotEntries: rarc.DotEntriesLast,
		NodeOrder:  rarc.NodeOrderBreadthFirst,
	})}
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "cube-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

func makeFiles(dir string, fileCount, fileSize, dirCount int, pattern string, seed int64) error {
	if dirCount <= 0 {
		dirCount = 1
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // intentional use for reproducible benchmarks
	for i := range fileCount {
		relPath := fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i)
		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil { //nolint:gosec // 0o755 is intentional for profiler
			return err
		}

		content := make([]byte, fileSize)
		switch pattern {
		case "random":
			if _, err := rng.Read(content); err != nil {
				return err
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}

		if err := os.WriteFile(fullPath, content, 0o644); err != nil { //nolint:gosec // 0o644 is intentional for profiler test files
			return err
		}
	}
	return nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func buildInput(stage string, cfg config) (*input, error) {
	a, err := rarc.FromFS(context.Background(), os.DirFS(stage), "stage", buildOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	raw, err := rarc.Serialize(a)
	if err != nil {
		return nil, err
	}
	packed, err := yaz0.Compress(raw, compressOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	return &input{stage: stage, archive: a, raw: raw, packed: packed}, nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newCache(cfg config, rootDir string) (cache.Cache, func() error, error) {
	switch cfg.cache {
	case cacheNone:
		return nil, nil, errors.New("cache=none should not create a cache")
	case "memory":
		c, err := memory.New(1024)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	case "disk":
		cacheDir := cfg.cacheDir
		autoDir := false
		if cacheDir == "" {
			base := filepath.Join(rootDir, "cache")
			if err := os.MkdirAll(base, 0o755); err != nil { //nolint:gosec // 0o755 is intentional for profiler
				return nil, nil, err
			}
			dir, err := os.MkdirTemp(base, "run-*")
			if err != nil {
				return nil, nil, err
			}
			cacheDir = dir
			autoDir = true
		}

		c, err := disk.New(cacheDir)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() error {
			if autoDir {
				return os.RemoveAll(cacheDir)
			}
			return nil
		}
		return c, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache: %s", cfg.cache)
	}
}
