package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3"
	info := Get()
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, GitSHA, info.GitSHA)
	assert.Contains(t, info.String(), "1.2.3 (")
}
