package storage

import (
	"os"
	"testing"
	"time"

	"github.com/MrCodeEU/facewatch/pkg/facedb"
	"github.com/MrCodeEU/facewatch/pkg/recognition"
)

func testRecords(count int) []facedb.Record {
	records := make([]facedb.Record, count)
	for i := range records {
		var d recognition.Descriptor
		for j := range d {
			d[j] = float32(i*128+j) / 1000.0
		}
		records[i] = facedb.Record{Name: "person", Descriptor: d}
	}
	return records
}

func TestSaveAndLoad(t *testing.T) {
	for _, encrypted := range []bool{false, true} {
		name := "plain"
		if encrypted {
			name = "encrypted"
		}
		t.Run(name, func(t *testing.T) {
			fs, err := NewFileStore(t.TempDir(), encrypted)
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}

			snap := Snapshot{
				FacesDir: "/data/faces",
				BuiltAt:  time.Now().Truncate(time.Second),
				Records:  testRecords(3),
			}
			if err := fs.Save(snap); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := fs.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.FacesDir != snap.FacesDir {
				t.Errorf("faces dir mismatch: %s != %s", loaded.FacesDir, snap.FacesDir)
			}
			if len(loaded.Records) != 3 {
				t.Errorf("expected 3 records, got %d", len(loaded.Records))
			}
			if loaded.Records[1].Descriptor != snap.Records[1].Descriptor {
				t.Error("descriptor not preserved")
			}
		})
	}
}

func TestEncryptedFileIsOpaque(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := fs.Save(Snapshot{FacesDir: "/faces", Records: testRecords(1)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(fs.path())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) > 0 && data[0] == '{' {
		t.Error("snapshot file does not appear to be encrypted")
	}
}

func TestLoad_NoSnapshot(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := fs.Load(); err != ErrNoSnapshot {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestLoad_CorruptCiphertext(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), true)
	if err != nil {
		t.Fatal(err)
	}

	// Too short for a nonce.
	if err := os.WriteFile(fs.path(), []byte("short"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load(); err != ErrEncryption {
		t.Errorf("expected ErrEncryption for short data, got %v", err)
	}

	// Long enough but not a valid box.
	if err := os.WriteFile(fs.path(), make([]byte, 100), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load(); err != ErrEncryption {
		t.Errorf("expected ErrEncryption for invalid data, got %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}

	// Invalidating a missing snapshot is fine.
	if err := fs.Invalidate(); err != nil {
		t.Errorf("Invalidate on empty store failed: %v", err)
	}

	if err := fs.Save(Snapshot{FacesDir: "/faces"}); err != nil {
		t.Fatal(err)
	}
	if err := fs.Invalidate(); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := fs.Load(); err != ErrNoSnapshot {
		t.Errorf("expected ErrNoSnapshot after Invalidate, got %v", err)
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), true)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("face database snapshot payload")
	sealed, err := fs.seal(plaintext)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if string(sealed) == string(plaintext) {
		t.Error("sealed data should differ from plaintext")
	}

	opened, err := fs.open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Error("round trip mismatch")
	}
}
