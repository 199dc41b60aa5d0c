package statefile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mrz1836/signerd/internal/secret"
	"github.com/mrz1836/signerd/internal/signer"
	"github.com/mrz1836/signerd/internal/statefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	statefile.SetScryptWorkFactor(10)
}

func testHash(t *testing.T, pw string) *secret.PasswordHash {
	t.Helper()
	h, err := secret.NewPasswordHash(secret.NewPassword([]byte(pw)), secret.HashParams{
		Time: 1, MemoryKiB: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	require.NoError(t, err)
	return h
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := statefile.Path(dir, "dolphin")
	hash := testHash(t, "correct horse")

	state := &signer.PersistedState{Mnemonic: "abandon abandon about", NextAddressIndex: 3}
	require.NoError(t, statefile.Save(path, hash, state))

	loaded, err := statefile.Load(path, hash)
	require.NoError(t, err)
	assert.Equal(t, state.Mnemonic, loaded.Mnemonic)
	assert.Equal(t, state.NextAddressIndex, loaded.NextAddressIndex)

	assert.NoFileExists(t, path+".backup")
}

func TestLoadWrongPasswordFails(t *testing.T) {
	dir := t.TempDir()
	path := statefile.Path(dir, "calamari")
	hash := testHash(t, "right")

	require.NoError(t, statefile.Save(path, hash, &signer.PersistedState{Mnemonic: "x"}))

	wrongHash := testHash(t, "wrong")
	_, err := statefile.Load(path, wrongHash)
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := statefile.Path(dir, "manta")
	_, err := statefile.Load(path, testHash(t, "anything"))
	assert.Error(t, err)
}

func TestPromoteBackupRecoversFromCrash(t *testing.T) {
	dir := t.TempDir()
	path := statefile.Path(dir, "dolphin")
	hash := testHash(t, "pw")

	require.NoError(t, statefile.Save(path, hash, &signer.PersistedState{Mnemonic: "first"}))

	// Simulate a crash mid-save: primary renamed away, new write never
	// happened.
	require.NoError(t, os.Rename(path, path+".backup"))
	assert.False(t, statefile.Exists(path))

	require.NoError(t, statefile.PromoteBackup(path))
	assert.True(t, statefile.Exists(path))

	loaded, err := statefile.Load(path, hash)
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.Mnemonic)
}

func TestSaveOverwriteProducesNoStaleBackup(t *testing.T) {
	dir := t.TempDir()
	path := statefile.Path(dir, "dolphin")
	hash := testHash(t, "pw")

	require.NoError(t, statefile.Save(path, hash, &signer.PersistedState{Mnemonic: "first"}))
	require.NoError(t, statefile.Save(path, hash, &signer.PersistedState{Mnemonic: "second"}))

	assert.NoFileExists(t, path+".backup")
	loaded, err := statefile.Load(path, hash)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Mnemonic)

	manifestPath := filepath.Join(dir, filepath.Base(path)+".manifest.json")
	assert.FileExists(t, manifestPath)
}
