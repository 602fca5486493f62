package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminal(t *testing.T) {
	assert := assert.New(t)

	file, err := os.Create(filepath.Join(t.TempDir(), "input"))
	assert.NoError(err)
	defer file.Close()

	assert.False(IsTerminal(file))
}
