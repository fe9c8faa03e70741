package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screa/nonce-miner/pkg/types"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunMinerWritesOnlyResultToStdout(t *testing.T) {
	stdout, stderr, err := execute(t, "--prefix", "00", "--verbose")
	require.NoError(t, err)

	assert.Equal(t, "286 00328ce57bbc14b33bd6695bc8eb32cdf2fb5f3a7d89ec14a42825e15d39df60\n", stdout)
	assert.Contains(t, stderr, "starting nonce miner")
	assert.Contains(t, stderr, "found match")
}

func TestRunMinerNotFound(t *testing.T) {
	stdout, _, err := execute(t, "--prefix", "00", "--max-nonce", "285")
	require.ErrorIs(t, err, types.ErrSearchExhausted)
	assert.Empty(t, stdout)
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestRunVerify(t *testing.T) {
	stdout, _, err := execute(t, "verify", "--prefix", "00", "--nonce", "286")
	require.NoError(t, err)
	assert.Equal(t, "286 00328ce57bbc14b33bd6695bc8eb32cdf2fb5f3a7d89ec14a42825e15d39df60\n", stdout)

	_, _, err = execute(t, "verify", "--prefix", "00", "--nonce", "285")
	require.Error(t, err)
	assert.Equal(t, exitError, exitCode(err))
}
