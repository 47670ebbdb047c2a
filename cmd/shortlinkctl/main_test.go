package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenIssue(t *testing.T) {
	out, err := execute(t, "token", "issue", "--owner", "user-1", "--email", "u@example.com", "--secret", "s3cret", "--ttl", "1h")
	require.NoError(t, err)

	identity, err := auth.New("s3cret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.OwnerID)
	assert.Equal(t, "u@example.com", identity.Email)
}

func TestTokenIssue_SecretFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")

	out, err := execute(t, "token", "issue", "--owner", "user-2")
	require.NoError(t, err)
	_, err = auth.New("from-env").Verify(strings.TrimSpace(out))
	assert.NoError(t, err)
}

func TestTokenIssue_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := execute(t, "token", "issue", "--owner", "user-1")
	assert.ErrorContains(t, err, "secret is required")

	_, err = execute(t, "token", "issue", "--secret", "x")
	assert.ErrorContains(t, err, "owner")
}

func TestMigrate_RequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")

	_, err := execute(t, "migrate", "up")
	assert.ErrorContains(t, err, "dsn is required")
}
