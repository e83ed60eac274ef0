package yaz0

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stream builds a Yaz0 stream declaring size and carrying body as tokens.
func stream(size uint32, body ...byte) []byte {
	out := appendHeader(nil, Header{Size: size})
	return append(out, body...)
}

func randomBytes(t *testing.T, n int, seed uint64) []byte {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)) //nolint:gosec // deterministic test data
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.UintN(256))
	}
	return out
}

func TestDecompressLiterals(t *testing.T) {
	t.Parallel()

	got, err := Decompress(stream(4, 0xF0, 'A', 'B', 'C', 'D'))
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCD"), got)
}

func TestDecompressOverlappingCopy(t *testing.T) {
	t.Parallel()

	// 'a' 'b' then a 6-byte back-reference at distance 2.
	got, err := Decompress(stream(8, 0xC0, 'a', 'b', 0x40, 0x01))
	require.NoError(t, err)
	assert.Equal(t, []byte("abababab"), got)
}

func TestDecompressLongToken(t *testing.T) {
	t.Parallel()

	// One literal then a 3-byte token: length 0x12+0x20, distance 1.
	got, err := Decompress(stream(1+0x32, 0x80, 'x', 0x00, 0x00, 0x20))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("x"), 1+0x32), got)
}

func TestDecompressClipsToDeclaredSize(t *testing.T) {
	t.Parallel()

	// The back-reference asks for 17 bytes but only 4 remain.
	got, err := Decompress(stream(5, 0x80, 'q', 0xF0, 0x00))
	require.NoError(t, err)
	assert.Equal(t, []byte("qqqqq"), got)
}

func TestDecompressIgnoresTrailingPadding(t *testing.T) {
	t.Parallel()

	got, err := Decompress(stream(2, 0xC0, 'h', 'i', 0, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)
}

func TestDecompressEmpty(t *testing.T) {
	t.Parallel()

	got, err := Decompress(stream(0))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecompressErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		opts []DecodeOption
		want error
	}{
		{"empty", nil, nil, ErrMalformedHeader},
		{"short header", []byte("Yaz0\x00\x00\x00\x04"), nil, ErrMalformedHeader},
		{"bad magic", append([]byte("Yay0"), make([]byte, 12)...), nil, ErrMalformedHeader},
		{"no flag byte", stream(4), nil, ErrTruncatedStream},
		{"missing literal", stream(4, 0xF0, 'A', 'B'), nil, ErrTruncatedStream},
		{"half token", stream(4, 0x80, 'A', 0x10), nil, ErrTruncatedStream},
		{"missing length byte", stream(40, 0x80, 'A', 0x00, 0x00), nil, ErrTruncatedStream},
		{"reference before start", stream(4, 0x00, 0x10, 0x00), nil, ErrInvalidBackReference},
		{"reference too far", stream(8, 0xC0, 'a', 'b', 0x10, 0x02), nil, ErrInvalidBackReference},
		{"size limit", stream(1024, 0xFF), []DecodeOption{DecodeWithMaxSize(512)}, ErrSizeOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decompress(tt.data, tt.opts...)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, got)
		})
	}
}

func TestDecompressWithoutSizeLimit(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte{7}, 4096)
	enc, err := Compress(src)
	require.NoError(t, err)

	got, err := Decompress(enc, DecodeWithMaxSize(0))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestCompressRun(t *testing.T) {
	t.Parallel()

	src := []byte("AAAAAAAAAA")
	enc, err := Compress(src)
	require.NoError(t, err)

	// One literal and one back-reference instead of ten literals.
	assert.Equal(t, []byte{0x80, 'A', 0x70, 0x00}, enc[HeaderSize:])
	assert.Less(t, len(enc)-HeaderSize, len(src))

	got, err := Decompress(enc)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestCompressPrefersClosestMatch(t *testing.T) {
	t.Parallel()

	enc, err := Compress([]byte("abcXabcYabc"))
	require.NoError(t, err)

	want := []byte{0xF4, 'a', 'b', 'c', 'X', 0x10, 0x03, 'Y', 0x10, 0x03}
	assert.Equal(t, want, enc[HeaderSize:])
}

func TestCompressLongMatches(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte("z"), 300)
	enc, err := Compress(src)
	require.NoError(t, err)

	want := []byte{0x80, 'z', 0x00, 0x00, 0xFF, 0x00, 0x00, 0x08}
	assert.Equal(t, want, enc[HeaderSize:])
}

func TestCompressHeader(t *testing.T) {
	t.Parallel()

	enc, err := Compress([]byte("header"), WithAlignment(0x80))
	require.NoError(t, err)
	require.True(t, IsCompressed(enc))

	h, err := ParseHeader(enc)
	require.NoError(t, err)
	assert.Equal(t, Header{Size: 6, Alignment: 0x80}, h)
	assert.Equal(t, uint32(6), binary.BigEndian.Uint32(enc[4:]))
}

func TestCompressRespectsWindow(t *testing.T) {
	t.Parallel()

	// "0123456789" repeats 32 bytes later; a 16-byte window cannot see it.
	src := append([]byte("0123456789"), randomBytes(t, 22, 7)...)
	src = append(src, "0123456789"...)

	narrow, err := Compress(src, WithWindowSize(16))
	require.NoError(t, err)
	wide, err := Compress(src)
	require.NoError(t, err)
	assert.Less(t, len(wide), len(narrow))

	got, err := Decompress(narrow)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestCompressRoundTrip(t *testing.T) {
	t.Parallel()

	text := bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 200)
	mixed := append(randomBytes(t, 5000, 1), text...)
	mixed = append(mixed, randomBytes(t, 5000, 1)...)

	inputs := map[string][]byte{
		"empty":  {},
		"single": {0x42},
		"two":    {0x42, 0x42},
		"zeros":  make([]byte, 100_000),
		"random": randomBytes(t, 64*1024, 2),
		"text":   text,
		"mixed":  mixed,
	}
	configs := map[string][]Option{
		"default":   nil,
		"lookahead": {WithLevel(LevelLookahead)},
		"small":     {WithWindowSize(64), WithMinMatch(4), WithMaxMatch(17)},
		"clamped":   {WithWindowSize(1 << 20), WithMinMatch(1), WithMaxMatch(1 << 20)},
	}

	for inName, src := range inputs {
		for cfgName, opts := range configs {
			t.Run(inName+"/"+cfgName, func(t *testing.T) {
				t.Parallel()
				enc, err := Compress(src, opts...)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(enc), MaxCompressedLen(len(src)))

				got, err := Decompress(enc)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(src, got), "round trip mismatch")
			})
		}
	}
}

func TestLookaheadNotLarger(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte("abcabdabcabdabxabcabd"), 50)
	greedy, err := Compress(src)
	require.NoError(t, err)
	lazy, err := Compress(src, WithLevel(LevelLookahead))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(lazy), len(greedy)+len(greedy)/10)
}

func TestParams(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Params(), Params(WithWindowSize(MaxDistance)))
	assert.NotEqual(t, Params(), Params(WithLevel(LevelLookahead)))
	assert.Equal(t, Params(WithWindowSize(0)), Params(WithWindowSize(1)))
}

func TestIsCompressed(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCompressed([]byte("Yaz0....")))
	assert.False(t, IsCompressed([]byte("RARC")))
	assert.False(t, IsCompressed([]byte("Ya")))
}
