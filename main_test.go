package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLoopStopsOnExitWord(t *testing.T) {
	var out bytes.Buffer
	var got []string
	err := chatLoop(strings.NewReader("I slept 8 hours\n\n  BYE  \nnever read\n"), &out, func(line string) {
		got = append(got, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"I slept 8 hours", ""}, got)
	assert.Contains(t, out.String(), "Goodbye! Take care.")
}

func TestChatLoopEOF(t *testing.T) {
	var out bytes.Buffer
	var got []string
	require.NoError(t, chatLoop(strings.NewReader("hello"), &out, func(line string) { got = append(got, line) }))
	assert.Equal(t, []string{"hello"}, got)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "chat", "monitor", "devices"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	assert.NotNil(t, monitorCmd.Flags().Lookup("duration"))
	assert.NotNil(t, chatCmd.Flags().Lookup("speak"))
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, "debug", newLogger("debug").GetLevel().String())
	assert.Equal(t, "info", newLogger("nonsense").GetLevel().String())
}
