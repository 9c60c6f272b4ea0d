package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifestJSON(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "dotfiles.json", `[
	{
		"source": "fish",
		"target": "/home/u/.config/fish",
		"pre_copy": [],
		"post_copy": ["chsh -s /usr/bin/fish"]
	},
	{
		"source": "hypr",
		"target": "~/.config/hypr"
	},
	{
		"source": "fish",
		"target": "/home/u/.config/fish"
	}
]`)

	directives, err := LoadManifest(p)
	require.NoError(t, err)
	require.Len(t, directives, 3)

	assert.Equal(t, Directive{
		Source:   "fish",
		Target:   "/home/u/.config/fish",
		PreCopy:  []string{},
		PostCopy: []string{"chsh -s /usr/bin/fish"},
	}, directives[0])
	assert.Empty(t, directives[1].PreCopy)
	assert.Empty(t, directives[1].PostCopy)
	assert.Equal(t, directives[0].Source, directives[2].Source, "duplicates are kept in order")
}

func TestLoadManifestYAML(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "dotfiles.yaml", `
- source: waybar
  target: ~/.config/waybar
  pre_copy:
    - mkdir -p ~/.config
  post_copy:
    - pkill -SIGUSR2 waybar
`)

	directives, err := LoadManifest(p)
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Equal(t, []string{"mkdir -p ~/.config"}, directives[0].PreCopy)
	assert.Equal(t, []string{"pkill -SIGUSR2 waybar"}, directives[0].PostCopy)
}

func TestLoadManifestFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{"not a list", "a.json", `{"source": "x", "target": "/x"}`, "failed to parse"},
		{"malformed json", "b.json", `[{"source": "x",}]`, "failed to parse"},
		{"unknown json field", "c.json", `[{"source": "x", "target": "/x", "mode": "0644"}]`, "failed to parse"},
		{"unknown yaml field", "d.yaml", "- source: x\n  target: /x\n  owner: root\n", "failed to parse"},
		{"trailing json", "e.json", `[] []`, "trailing data"},
		{"missing source", "f.json", `[{"target": "/x"}]`, "source is required"},
		{"missing target", "g.json", `[{"source": "x"}]`, "target is required"},
		{"absolute source", "h.json", `[{"source": "/etc/x", "target": "/x"}]`, "must be relative"},
		{"escaping source", "i.json", `[{"source": "../x", "target": "/x"}]`, "escapes the dotfiles directory"},
		{"relative target", "j.json", `[{"source": "x", "target": "x"}]`, "must be absolute"},
		{"empty hook", "k.json", `[{"source": "x", "target": "/x", "post_copy": [" "]}]`, "post_copy[0] is empty"},
		{"empty yaml", "l.yaml", ``, "failed to parse"},
		{"null json", "m.json", `null`, "expected a list of directives"},
		{"null yaml", "n.yaml", "null\n", "expected a list of directives"},
		{"tilde yaml", "o.yaml", "~\n", "expected a list of directives"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeTemp(t, dir, tt.file, tt.content)
			_, err := LoadManifest(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrManifest))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadManifestEmptyList(t *testing.T) {
	for _, name := range []string{"empty.json", "empty.yaml"} {
		p := writeTemp(t, t.TempDir(), name, "[]")
		directives, err := LoadManifest(p)
		require.NoError(t, err, name)
		assert.Empty(t, directives, name)
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "dotfiles.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManifest)
	assert.Contains(t, err.Error(), "failed to read")
}
