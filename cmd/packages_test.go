package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerDisplayNameTitleCasesUnderscoredKeys(t *testing.T) {
	assert.Equal(t, "Npm Global", managerDisplayName("npm_global"))
	assert.Equal(t, "Brew Formula", managerDisplayName("brew_formula"))
	assert.Equal(t, "Winget", managerDisplayName("winget"))
}
