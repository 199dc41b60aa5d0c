// Package statefile persists one network's signer.PersistedState to an
// age-encrypted file on disk, using the backup-rename discipline spec.md
// §4.4 requires: rename the existing file to a .backup sibling before
// writing the new one, and remove the .backup only after the write
// succeeds, so a crash mid-save always leaves a recoverable file behind.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrz1836/signerd/internal/fileutil"
	"github.com/mrz1836/signerd/internal/secret"
	"github.com/mrz1836/signerd/internal/signer"
	"github.com/mrz1836/signerd/pkg/signererr"
)

const backupSuffix = ".backup"
const manifestSuffix = ".manifest.json"

// manifest is a diagnostic sidecar recording which save was last in flight.
// It is never required for correctness; the rename/promote rule alone
// satisfies spec.md §4.4's durability invariant (supplemented feature, see
// SPEC_FULL.md §11).
type manifest struct {
	Network   string    `json:"network"`
	SavedAt   time.Time `json:"saved_at"`
	SizeBytes int       `json:"size_bytes"`
}

// Exists reports whether a primary state file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PromoteBackup recovers from a crash mid-save: if path does not exist and
// path+".backup" does, the backup is renamed to the primary location. If
// path exists, any leftover backup is deleted and the primary is kept; a
// backup never replaces an existing primary file. It is a no-op if no
// backup is present.
func PromoteBackup(path string) error {
	backup := path + backupSuffix
	if Exists(path) {
		// Primary survived; a leftover backup from an interrupted save that
		// completed its rename-away step but never finished cleanup.
		if Exists(backup) {
			_ = os.Remove(backup)
		}
		return nil
	}
	if !Exists(backup) {
		return nil
	}
	if err := os.Rename(backup, path); err != nil {
		return signererr.Wrap(err, "promoting backup state file %q", backup)
	}
	return nil
}

// Save encrypts state under passwordHash's digest (hex-encoded, as age's
// scrypt recipient takes a password string) and writes it to path following
// the rename-then-write-then-remove-backup sequence.
func Save(path string, passwordHash *secret.PasswordHash, state *signer.PersistedState) error {
	plaintext, err := json.Marshal(state)
	if err != nil {
		return signererr.Wrap(err, "marshaling signer state")
	}

	ciphertext, err := Encrypt(plaintext, passwordHash.AsPassphrase())
	if err != nil {
		return signererr.Wrap(signererr.ErrSave, "encrypting signer state: %v", err)
	}

	if Exists(path) {
		if err := os.Rename(path, path+backupSuffix); err != nil {
			return signererr.Wrap(err, "backing up existing state file %q", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return signererr.Wrap(err, "creating state directory")
	}
	if err := fileutil.WriteAtomic(path, ciphertext, 0o600); err != nil {
		return signererr.Wrap(signererr.ErrSave, "writing state file %q: %v", path, err)
	}

	_ = os.Remove(path + backupSuffix)
	_ = writeManifest(path, len(ciphertext))

	return nil
}

// Load decrypts and unmarshals the state file at path under passwordHash.
// It returns signererr.ErrStateNotFound if no file exists, and
// signererr.ErrDecryptionFailed if passwordHash does not match.
func Load(path string, passwordHash *secret.PasswordHash) (*signer.PersistedState, error) {
	if err := PromoteBackup(path); err != nil {
		return nil, err
	}

	ciphertext, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, signererr.ErrStateNotFound
	}
	if err != nil {
		return nil, signererr.Wrap(err, "reading state file %q", path)
	}

	plaintext, err := Decrypt(ciphertext, passwordHash.AsPassphrase())
	if err != nil {
		return nil, signererr.ErrDecryptionFailed
	}

	var state signer.PersistedState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, signererr.Wrap(err, "decoding signer state")
	}
	return &state, nil
}

func writeManifest(statePath string, size int) error {
	m := manifest{
		Network:   filepath.Base(statePath),
		SavedAt:   time.Now(),
		SizeBytes: size,
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(statePath+manifestSuffix, data, 0o600)
}

// Path builds the on-disk path for a network's state file under dataDir,
// mirroring original_source/src/config.rs's per-account file naming
// generalized to one file per network.
func Path(dataDir, networkName string) string {
	return filepath.Join(dataDir, fmt.Sprintf("storage-%s.dat", networkName))
}
