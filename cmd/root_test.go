package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/financebot/financebot/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"serve", "call", "account", "reports", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "financebot", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCallCommand_Flags(t *testing.T) {
	flag := callCmd.Flags().Lookup("name")
	require.NotNil(t, flag, "call command should have --name flag")
}

func TestCallCommand_HasDataSubcommand(t *testing.T) {
	found := false
	for _, c := range callCmd.Commands() {
		if c.Name() == "data" {
			found = true
			assert.NotEmpty(t, c.Short)
		}
	}
	assert.True(t, found, "call command should expose a data subcommand")
}

func TestInitStore_DriverSelection(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = &config.Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = filepath.Join(t.TempDir(), "test.db")

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	st.Close()

	cfg.Store.Driver = "mysql"
	_, err = initStore(context.Background())
	require.Error(t, err)
}
