package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "ragstore", rootCmd.Use)
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{
		"ask", "document", "health", "history", "ingest", "mcp",
		"query", "reset", "settings", "stats", "tui", "version", "watch",
	}
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, names, name)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("home"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"configuration", fmt.Errorf("embed: %w", domain.ErrConfiguration), "settings set embedding.api_key"},
		{"integrity", fmt.Errorf("ingest: %w", domain.ErrIntegrity), "ragstore reset"},
		{"dimension", domain.ErrDimensionMismatch, "embedding model changed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Hint(tt.err), tt.want)
		})
	}

	assert.Empty(t, Hint(errors.New("other")))
	assert.Empty(t, Hint(nil))
}

func TestCommandFlags(t *testing.T) {
	port := mcpServeCmd.Flags().Lookup("port")
	if assert.NotNil(t, port) {
		assert.Equal(t, "p", port.Shorthand)
		assert.Equal(t, "0", port.DefValue)
	}
	assert.NotNil(t, watchCmd.Flags().Lookup("no-sync"))
	assert.NotNil(t, resetCmd.Flags().Lookup("yes"))
	assert.Equal(t, "20", historyCmd.Flags().Lookup("limit").DefValue)
}

func TestTUICmd_RejectsArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "tui", "extra")

	assert.Error(t, err)
}

func TestWatchCmd_RequiresDirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "watch")

	assert.Error(t, err)
}
