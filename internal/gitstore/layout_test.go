package gitstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutDotfileBlob(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "dotfiles", "zshrc.enc"), l.DotfileBlob(".zshrc"))
	assert.Equal(t, filepath.Join("/store", "dotfiles", "config_nvim_init.vim.enc"), l.DotfileBlob(".config/nvim/init.vim"))
}

func TestLayoutSelfConfigBlob(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "dotfiles", "tether", "config.toml.enc"), l.SelfConfigBlob())
}

func TestLayoutConfigBlob(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "configs", ".config/foo/bar.enc"), l.ConfigBlob(".config/foo/bar"))
}

func TestLayoutManifestPath(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "manifests", "Brewfile"), l.ManifestPath("Brewfile"))
}

func TestLayoutProjectConfigPath(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "projects", "github.com/org/repo"), l.ProjectConfigPath("github.com/org/repo"))
}

func TestLayoutMachineStatePath(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "machines", "laptop-1.json"), l.MachineStatePath("laptop-1"))
}

func TestLayoutCollabManifestPath(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", ".tether-collab.toml"), l.CollabManifestPath())
}

func TestLayoutRecipientKeyPath(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "recipients", "alice.pub"), l.RecipientKeyPath("alice"))
}

func TestLayoutRecipientsDir(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "recipients"), l.RecipientsDir())
}

func TestLayoutProfileDir(t *testing.T) {
	l := NewLayout("/store")
	assert.Equal(t, filepath.Join("/store", "profiles", "work"), l.ProfileDir("work"))
}

func TestNormalizeRemoteURLVariants(t *testing.T) {
	cases := map[string]string{
		"git@github.com:org/repo.git":    "github.com/org/repo",
		"https://github.com/org/repo.git": "github.com/org/repo",
		"http://github.com/org/repo":      "github.com/org/repo",
		"ssh://git@github.com/org/repo":   "github.com/org/repo",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRemoteURL(in), "input: %s", in)
	}
}
