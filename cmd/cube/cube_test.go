package main

import (
	"archive/tar"
	"bytes"
	"context"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/cube/bti"
	"github.com/meigma/cube/internal/bundle"
	"github.com/meigma/cube/rarc"
	"github.com/meigma/cube/szs"
	"github.com/meigma/cube/yaz0"
)

var discard = slog.New(slog.DiscardHandler)

// testTexture returns an 8x4 I8 texture filled with intensity 0x80.
func testTexture() []byte {
	data := make([]byte, bti.HeaderSize+32)
	data[0x00] = byte(bti.FormatI8)
	data[0x03] = 8
	data[0x05] = 4
	data[0x18] = 1
	data[0x1F] = bti.HeaderSize
	for i := bti.HeaderSize; i < len(data); i++ {
		data[i] = 0x80
	}
	return data
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func TestParser(t *testing.T) {
	parser := newParser()
	for _, name := range []string{"extract", "pack", "list", "bti", "yaz0"} {
		assert.NotNil(t, parser.Find(name), name)
	}
	assert.NotNil(t, parser.Find("yaz0").Find("compress"))
	assert.NotNil(t, parser.Find("yaz0").Find("decompress"))

	parser.Options &^= flags.PrintErrors
	_, err := parser.ParseArgs([]string{"list"})
	var flagErr *flags.Error
	require.ErrorAs(t, err, &flagErr)
	assert.Equal(t, flags.ErrRequired, flagErr.Type)

	_, err = parser.ParseArgs([]string{"--log.level=loud", "list", "x.szs"})
	require.ErrorAs(t, err, &flagErr)
	assert.Equal(t, flags.ErrInvalidChoice, flagErr.Type)
}

func TestLogConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logConfig{Level: "info", Format: "json"}.newLoggerTo(&buf).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	log := logConfig{Level: "error", Format: "text"}.newLoggerTo(&buf)
	log.Warn("dropped")
	log.Error("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestPack(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	dir := filepath.Join(tmp, "stage")
	writeTree(t, dir, map[string]string{
		"a.txt":     "alpha",
		"sub/b.bin": "beta beta beta beta",
	})

	cmd := &cmdPack{Window: 4096, CacheDir: filepath.Join(tmp, "cache"), CacheMax: "1MiB"}
	cmd.Args.Dir = dir
	require.NoError(t, cmd.run(context.Background(), discard))

	packed, err := os.ReadFile(dir + ".szs")
	require.NoError(t, err)
	assert.True(t, yaz0.IsCompressed(packed))

	a, err := szs.Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, "stage", a.Root.Name)
	data, err := a.ReadFile("sub/b.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("beta beta beta beta"), data)

	entries, err := os.ReadDir(filepath.Join(tmp, "cache"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "compressed output is cached")

	require.NoError(t, cmd.run(context.Background(), discard))
	again, err := os.ReadFile(dir + ".szs")
	require.NoError(t, err)
	assert.Equal(t, packed, again)
}

func TestPackRaw(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	dir := filepath.Join(tmp, "in")
	writeTree(t, dir, map[string]string{"x/y/z.bin": "zz"})

	cmd := &cmdPack{Raw: true, Nintendo: true, Root: "scene", Out: filepath.Join(tmp, "out.arc")}
	cmd.Args.Dir = dir
	require.NoError(t, cmd.run(context.Background(), discard))

	raw, err := os.ReadFile(cmd.Out)
	require.NoError(t, err)
	assert.Equal(t, rarc.Magic, string(raw[:4]))
	a, err := rarc.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "scene", a.Root.Name)
	_, ok := a.Lookup("x/y/z.bin")
	assert.True(t, ok)
}

func TestPackMissingDir(t *testing.T) {
	t.Parallel()

	cmd := &cmdPack{Window: 4096}
	cmd.Args.Dir = filepath.Join(t.TempDir(), "missing")
	require.Error(t, cmd.run(context.Background(), discard))
}

// nestedArchive builds stage.szs holding a nested archive and a texture.
func nestedArchive(t *testing.T) []byte {
	t.Helper()
	inner := rarc.NewArchive("inner")
	_, err := inner.Root.AddFile("in.txt", []byte("inside"))
	require.NoError(t, err)
	innerPacked, err := szs.Pack(inner)
	require.NoError(t, err)

	outer := rarc.NewArchive("stage")
	_, err = outer.Root.AddFile("inner.szs", innerPacked)
	require.NoError(t, err)
	tex, err := outer.Root.AddDir("timg")
	require.NoError(t, err)
	_, err = tex.AddFile("wall.bti", testTexture())
	require.NoError(t, err)

	packed, err := szs.Pack(outer)
	require.NoError(t, err)
	return packed
}

func TestExtract(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	in := filepath.Join(tmp, "stage.szs")
	require.NoError(t, os.WriteFile(in, nestedArchive(t), 0o600))

	out := filepath.Join(tmp, "out")
	cmd := &cmdExtract{
		Out:     out,
		BTI:     true,
		Bundle:  filepath.Join(tmp, "stage.tar.zst"),
		Jobs:    2,
		MaxSize: "1MiB",
	}
	cmd.Args.Files = []string{in}
	require.NoError(t, cmd.run(context.Background(), discard))

	got, err := os.ReadFile(filepath.Join(out, "stage", "inner", "in.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("inside"), got)
	_, err = os.Stat(filepath.Join(out, "stage", "inner.szs"))
	require.NoError(t, err, "nested archives are also kept packed")

	f, err := os.Open(filepath.Join(out, "stage", "timg", "wall.bti.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	bf, err := os.Open(cmd.Bundle)
	require.NoError(t, err)
	defer bf.Close()
	var names []string
	require.NoError(t, bundle.Walk(bf, func(hdr *tar.Header, _ []byte) error {
		names = append(names, hdr.Name)
		return nil
	}))
	assert.Contains(t, names, "stage/inner.szs")
	assert.Contains(t, names, "stage/timg/wall.bti")
	assert.Contains(t, names, "stage/inner/in.txt")
}

func TestExtractNoNested(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	in := filepath.Join(tmp, "stage.szs")
	require.NoError(t, os.WriteFile(in, nestedArchive(t), 0o600))

	cmd := &cmdExtract{Out: tmp, NoNested: true, Jobs: 1, MaxSize: "1MiB"}
	cmd.Args.Files = []string{in}
	require.NoError(t, cmd.run(context.Background(), discard))

	_, err := os.Stat(filepath.Join(tmp, "stage", "inner"))
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(tmp, "stage", "timg", "wall.bti.png"))
	require.ErrorIs(t, err, os.ErrNotExist, "textures are converted only with --bti")
}

func TestExtractStandaloneTexture(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	in := filepath.Join(tmp, "logo.bti")
	require.NoError(t, os.WriteFile(in, testTexture(), 0o600))

	cmd := &cmdExtract{Out: tmp, Jobs: 1, MaxSize: "1MiB"}
	cmd.Args.Files = []string{in}
	require.NoError(t, cmd.run(context.Background(), discard))
	_, err := os.Stat(filepath.Join(tmp, "logo.png"))
	require.NoError(t, err)
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	bad := filepath.Join(tmp, "bad.szs")
	require.NoError(t, os.WriteFile(bad, []byte("not an archive at all, not even close"), 0o600))

	cmd := &cmdExtract{Out: tmp, Jobs: 4, MaxSize: "1MiB"}
	cmd.Args.Files = []string{bad}
	require.ErrorIs(t, cmd.run(context.Background(), discard), rarc.ErrMalformedHeader)

	cmd.Args.Files = []string{filepath.Join(tmp, "missing.szs")}
	require.ErrorIs(t, cmd.run(context.Background(), discard), os.ErrNotExist)

	cmd.MaxSize = "lots"
	require.Error(t, cmd.run(context.Background(), discard))
}

func TestList(t *testing.T) {
	t.Parallel()

	in := filepath.Join(t.TempDir(), "stage.szs")
	require.NoError(t, os.WriteFile(in, nestedArchive(t), 0o600))

	var buf bytes.Buffer
	cmd := &cmdList{out: &buf}
	cmd.Args.File = in
	require.NoError(t, cmd.run(discard))

	out := buf.String()
	assert.Contains(t, out, "inner.szs")
	assert.Contains(t, out, "timg/wall.bti")
	assert.Contains(t, out, "1 directories, 2 files")
}

func TestListRender(t *testing.T) {
	t.Parallel()

	a := rarc.NewArchive("root")
	sub, err := a.Root.AddDir("sub")
	require.NoError(t, err)
	_, err = sub.AddFile("a.bin", make([]byte, 2048))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&cmdList{out: &buf}).render(a))

	out := buf.String()
	table, summary, ok := strings.Cut(out, "1 directories, 1 files (0 compressed), 2.0 KiB\n")
	require.True(t, ok, out)
	assert.Empty(t, summary)
	for _, want := range []string{"PATH", "FLAGS", "sub/", "sub/a.bin", "file|mram", "2.0 KiB"} {
		assert.Contains(t, strings.ToUpper(table), strings.ToUpper(want))
	}
}

func TestBTI(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	in := filepath.Join(tmp, "wall.bti")
	require.NoError(t, os.WriteFile(in, testTexture(), 0o600))

	cmd := &cmdBTI{MaxPixels: bti.DefaultMaxPixels}
	cmd.Args.In = in
	require.NoError(t, cmd.run(discard))
	_, err := os.Stat(filepath.Join(tmp, "wall.png"))
	require.NoError(t, err)

	cmd.MaxPixels = 16
	require.ErrorIs(t, cmd.run(discard), bti.ErrSizeOverflow)
}

func TestYaz0RoundTrip(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	plain := bytes.Repeat([]byte("it's-a me "), 200)
	in := filepath.Join(tmp, "plain.bin")
	require.NoError(t, os.WriteFile(in, plain, 0o600))

	c := &cmdYaz0Compress{Window: 4096, Lazy: true, Alignment: 0x80}
	c.Args = yaz0Args{In: in, Out: filepath.Join(tmp, "packed.yaz0")}
	require.NoError(t, c.run(discard))

	packed, err := os.ReadFile(c.Args.Out)
	require.NoError(t, err)
	h, err := yaz0.ParseHeader(packed)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(plain)), h.Size)
	assert.Equal(t, uint32(0x80), h.Alignment)

	d := &cmdYaz0Decompress{MaxSize: "64KiB"}
	d.Args = yaz0Args{In: c.Args.Out, Out: filepath.Join(tmp, "back.bin")}
	require.NoError(t, d.run(discard))
	back, err := os.ReadFile(d.Args.Out)
	require.NoError(t, err)
	assert.Equal(t, plain, back)

	d.MaxSize = "1KiB"
	require.ErrorIs(t, d.run(discard), yaz0.ErrSizeOverflow)
}
