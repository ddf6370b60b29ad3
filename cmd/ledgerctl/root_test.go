package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() (*config.Config, error) {
	return &config.Config{JWT: config.JWTConfig{Secret: "cli-secret"}}, nil
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	var out bytes.Buffer
	cmd := newTokenCmd(testConfig)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"order-service", "--role", "service", "--ttl", "1h"})
	require.NoError(t, cmd.Execute())

	signed := strings.TrimSpace(out.String())
	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) { return []byte("cli-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "order-service", claims["sub"])
	assert.Equal(t, "service", claims["role"])
	assert.Contains(t, claims, "exp")
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	cmd := newTokenCmd(testConfig)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"someone", "--role", "root"})
	assert.ErrorContains(t, cmd.Execute(), "unknown role")
}

func TestReplayDryRunDoesNotLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("orderId,buyerId,totalAmount\no1,u1,100000\no2,u2,300000\n"), 0o600))

	var out bytes.Buffer
	cmd := newReplayCmd(func() (*config.Config, error) {
		t.Fatal("config loaded during dry run")
		return nil, nil
	})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--dry-run"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "2 orders parsed, nothing written\n", out.String())
}

func TestReplayMissingFile(t *testing.T) {
	cmd := newReplayCmd(testConfig)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorContains(t, cmd.Execute(), "failed to open CSV file")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"token", "replay"})
}
