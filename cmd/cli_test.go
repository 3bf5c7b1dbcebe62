package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", stdout)
}

func TestCodecEncodeAndDecode(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "codec", "encode", "e2e4")
	require.NoError(t, err)
	assert.Equal(t, "0x848c\n", stdout)

	stdout, _, err = executeCLI(t, home, "codec", "decode", "0x848c")
	require.NoError(t, err)
	assert.Equal(t, "e2e4\n", stdout)
}

func TestCodecDecodeRejectsReservedBits(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "codec", "decode", "0x858c")
	require.ErrorIs(t, err, domain.ErrCodec)
}

func TestCodecEncodeRejectsBadMove(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "codec", "encode", "z9e4")
	require.Error(t, err)
}

func TestInitGeneratesIdentityAndKeepsItOnUpdate(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "init", "--name", "Alice")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile Alice (")

	configPath := filepath.Join(home, ".config", "pchess", "config.toml")
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	identity := regexp.MustCompile(`identity = ['"]([0-9a-f-]{36})['"]`).FindStringSubmatch(string(data))
	require.Len(t, identity, 2, string(data))

	stdout, _, err = executeCLI(t, home, "init", "--name", "Alicia", "--relay", "wss://relay.example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile Alicia ("+identity[1]+")")

	data, err = os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wss://relay.example.com")
}

func TestInitRequiresName(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile")
}

func TestInitRejectsInvalidRelayURL(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "init", "--name", "Alice", "--relay", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RelayURL")
}

func TestContactsLifecycle(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "contacts", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No contacts saved.")

	_, _, err = executeCLI(t, home, "contacts", "add", "peer-1", "Bob")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "contacts", "add", "peer-2", "Carol")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "contacts", "list")
	require.NoError(t, err)
	assert.Regexp(t, `Bob\s+peer-1`, stdout)
	assert.Regexp(t, `Carol\s+peer-2`, stdout)

	_, _, err = executeCLI(t, home, "contacts", "remove", "peer-1")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "contacts", "list")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Bob")

	_, _, err = executeCLI(t, home, "contacts", "rm", "peer-1")
	require.ErrorIs(t, err, domain.ErrContactNotFound)
}

func TestContactsPathFromEnvironment(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "elsewhere", "book.toml")
	t.Setenv("PCHESS_CONTACTS_PATH", path)

	_, _, err := executeCLI(t, home, "contacts", "add", "peer-1", "Bob")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestPlayRequiresProfile(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "play")
	require.ErrorIs(t, err, ErrProfileMissing)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
