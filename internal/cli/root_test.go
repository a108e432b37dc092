package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["analyze"])
	assert.True(t, names["schema"])
	assert.True(t, names["graph"])
	assert.True(t, names["version"])
	assert.True(t, names["completion"])
}
