package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mcpmux/internal/pidfile"
)

func TestRunProxy_NoRunningServerIsError(t *testing.T) {
	dir := t.TempDir()
	_, err := pidfile.Discover(dir, "127.0.0.1", []int{1})
	assert.Error(t, err)
}
