package main

import (
	"bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer

	opts, err := parseFlags([]string{"--verbose", "--config", "/tmp/pixlock.yaml", "notify-send", "-u", "low", "unlocked"}, &out)
	require.NoError(t, err)

	assert.True(t, opts.verbose)
	assert.Equal(t, "/tmp/pixlock.yaml", opts.configPath)
	assert.Equal(t, []string{"notify-send", "-u", "low", "unlocked"}, opts.command)
	assert.False(t, opts.version)
}

func TestParseFlags_NoCommand(t *testing.T) {
	opts, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, opts.command)
}

func TestParseFlags_Unknown(t *testing.T) {
	_, err := parseFlags([]string{"-x"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer

	require.NoError(t, run([]string{"-v"}, &stdout, &stderr))
	assert.Equal(t, "pixlock-dev\n", stdout.String())
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer

	require.NoError(t, run([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: pixlock")
}
