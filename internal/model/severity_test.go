package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeverityFromTextMapsToBlockLow(t *testing.T) {
	require.Equal(t, SeverityTrace, SeverityFromText("trace"))
	require.Equal(t, SeverityDebug, SeverityFromText("DEBUG3"))
	require.Equal(t, SeverityInfo, SeverityFromText("Info"))
	require.Equal(t, SeverityWarn, SeverityFromText("warning"))
	require.Equal(t, SeverityError, SeverityFromText("ERROR"))
	require.Equal(t, SeverityFatal, SeverityFromText("critical"))
	require.Equal(t, SeverityUnset, SeverityFromText("nonsense"))
}

func TestSeverityOrdering(t *testing.T) {
	require.True(t, SeverityTrace < SeverityDebug)
	require.True(t, SeverityDebug < SeverityInfo)
	require.True(t, SeverityInfo < SeverityWarn)
	require.True(t, SeverityWarn < SeverityError)
	require.True(t, SeverityError < SeverityFatal)
}

func TestSeverityValid(t *testing.T) {
	require.True(t, SeverityValid(0))
	require.True(t, SeverityValid(1))
	require.True(t, SeverityValid(24))
	require.False(t, SeverityValid(25))
	require.False(t, SeverityValid(-1))
}
