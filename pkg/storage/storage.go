// Package storage persists a built face database to disk so later runs
// can skip re-encoding every photo. Snapshots are encrypted at rest
// with NaCl secretbox, keyed to this machine.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrCodeEU/facewatch/pkg/facedb"
	"github.com/MrCodeEU/facewatch/pkg/logging"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keySize   = 32
)

// Snapshot is a persisted face database.
type Snapshot struct {
	FacesDir string          `json:"faces_dir"`
	BuiltAt  time.Time       `json:"built_at"`
	Records  []facedb.Record `json:"records"`
}

// ErrNoSnapshot is returned when no snapshot has been saved.
var ErrNoSnapshot = errors.New("no database snapshot found")

// ErrEncryption is returned when sealing or opening a snapshot fails.
var ErrEncryption = errors.New("snapshot encryption error")

// FileStore saves and loads database snapshots under a directory.
type FileStore struct {
	dir               string
	encryptionEnabled bool
	key               [keySize]byte
}

// NewFileStore creates the snapshot directory and, when encryption is
// enabled, derives the machine-bound key.
func NewFileStore(dir string, encryptionEnabled bool) (*FileStore, error) {
	fs := &FileStore{dir: dir, encryptionEnabled: encryptionEnabled}

	if encryptionEnabled {
		fs.key = deriveKey()
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return fs, nil
}

// deriveKey ties the snapshot to this machine: machine-id, hostname and
// uid are hashed into the secretbox key.
func deriveKey() [keySize]byte {
	var identity strings.Builder

	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("facewatch-v1-salt")

	return sha256.Sum256([]byte(identity.String()))
}

func (fs *FileStore) path() string {
	if fs.encryptionEnabled {
		return filepath.Join(fs.dir, "facedb.enc")
	}
	return filepath.Join(fs.dir, "facedb.json")
}

// Save writes the snapshot, sealing it when encryption is enabled.
func (fs *FileStore) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if fs.encryptionEnabled {
		data, err = fs.seal(data)
		if err != nil {
			return fmt.Errorf("seal snapshot: %w", err)
		}
	}

	if err := os.WriteFile(fs.path(), data, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logging.Component("storage").Debugf("saved snapshot with %d records", len(snap.Records))
	return nil
}

// Load reads the snapshot back. ErrNoSnapshot when none was saved.
func (fs *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(fs.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if fs.encryptionEnabled {
		data, err = fs.open(data)
		if err != nil {
			return nil, err
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	logging.Component("storage").Debugf("loaded snapshot with %d records", len(snap.Records))
	return &snap, nil
}

// Invalidate removes any saved snapshot.
func (fs *FileStore) Invalidate() error {
	err := os.Remove(fs.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

func (fs *FileStore) seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &fs.key), nil
}

func (fs *FileStore) open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, ErrEncryption
	}

	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &fs.key)
	if !ok {
		return nil, ErrEncryption
	}
	return plaintext, nil
}
