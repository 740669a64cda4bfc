package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mcpmux/pkg/mcperr"
)

func TestGetExitCode_FatalKindMapsToExitCodeFatal(t *testing.T) {
	err := mcperr.New(mcperr.KindFatal, "port bind failed")
	assert.Equal(t, ExitCodeFatal, getExitCode(err))
}

func TestGetExitCode_OtherKindsMapToExitCodeError(t *testing.T) {
	err := mcperr.New(mcperr.KindConfigInvalid, "bad config")
	assert.Equal(t, ExitCodeError, getExitCode(err))
}

func TestSetVersion_RoundTrips(t *testing.T) {
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", GetVersion())
}
