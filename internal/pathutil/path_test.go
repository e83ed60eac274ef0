package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading slash", "/res/Object", "res/Object"},
		{"trailing slash", "res/Object/", "res/Object"},
		{"empty string", "", "."},
		{"root slash", "/", "."},
		{"dot", ".", "."},
		{"simple", "a.bti", "a.bti"},
		{"internal double slashes", "res//timg", "res/timg"},
		{"only slashes", "///", "."},
		{"dotdot preserved", "//a//..//b//", "a/../b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestBaseAndJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".", Base(""))
	assert.Equal(t, "c.bin", Base("a/b/c.bin"))
	assert.Equal(t, "b", Base("a/b/"))
	assert.Equal(t, "x", Join("", "x"))
	assert.Equal(t, "x", Join(".", "x"))
	assert.Equal(t, "a/x", Join("a", "x"))
}

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root", ".", true},
		{"simple", "res/timg/a.bti", true},
		{"shift-jis", "res/\x83e\x83X\x83g.bin", true},
		{"invalid utf-8", "\xff\xfe", true},
		{"empty", "", false},
		{"leading slash", "/a", false},
		{"trailing slash", "a/", false},
		{"double slash", "a//b", false},
		{"dot element", "a/./b", false},
		{"dotdot element", "a/../b", false},
		{"nul", "a\x00b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Valid(tt.path))
		})
	}
}
