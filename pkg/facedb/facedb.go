// Package facedb builds and queries the in-memory face database.
// The on-disk layout is one directory per person containing photos of
// that person; each photo with exactly one detectable face contributes
// one (name, descriptor) record.
package facedb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/MrCodeEU/facewatch/pkg/fsutil"
	"github.com/MrCodeEU/facewatch/pkg/imaging"
	"github.com/MrCodeEU/facewatch/pkg/logging"
	"github.com/MrCodeEU/facewatch/pkg/recognition"
)

// Record is one labeled face descriptor. Immutable after load.
type Record struct {
	Name       string                 `json:"name"`
	Descriptor recognition.Descriptor `json:"descriptor"`
}

// Summary describes a loaded database.
type Summary struct {
	People     int
	ImagesUsed int
	Encodings  int
	PerPerson  map[string]int
	FacesDir   string
}

// Config tells the builder where to look and what counts as an image.
type Config struct {
	Root       string
	Extensions []string
}

// DefaultExtensions are the image extensions the builder accepts.
func DefaultExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}
}

// ErrFacesDirMissing is returned when the faces root does not exist.
var ErrFacesDirMissing = errors.New("faces directory does not exist")

// ErrEmptyDatabase is returned by callers that need at least one record.
var ErrEmptyDatabase = errors.New("face database contains no encodings")

// Database is a read-only collection of face records.
type Database struct {
	facesDir string
	records  []Record
}

// Build walks the faces root and encodes every usable image. Images
// with zero or multiple faces, and unreadable files, are skipped with a
// warning. Only a missing root is a hard failure.
func Build(cfg Config, enc recognition.Encoder) (*Database, error) {
	log := logging.Component("facedb")

	if !fsutil.IsDir(cfg.Root) {
		return nil, fmt.Errorf("%w: %s", ErrFacesDirMissing, cfg.Root)
	}

	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions()
	}

	log.Infof("loading face database from %s", cfg.Root)

	personDirs, err := fsutil.ListSubdirs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("list person directories: %w", err)
	}
	if len(personDirs) == 0 {
		log.Warnf("no person directories found in %s", cfg.Root)
	}

	db := &Database{facesDir: cfg.Root}

	for _, personDir := range personDirs {
		name := filepath.Base(personDir)

		images, err := fsutil.ListImageFiles(personDir, extensions)
		if err != nil {
			log.WithError(err).Warnf("skipping %s: cannot list images", name)
			continue
		}
		if len(images) == 0 {
			log.Warnf("no images found for %s", name)
			continue
		}

		loaded := 0
		for _, path := range images {
			descriptor, ok := encodeImage(enc, path)
			if !ok {
				continue
			}
			db.records = append(db.records, Record{Name: name, Descriptor: descriptor})
			loaded++
		}
		log.Infof("loaded %d/%d encodings for %s", loaded, len(images), name)
	}

	summary := db.Summary()
	log.WithFields(logging.Fields{
		"people":    summary.People,
		"encodings": summary.Encodings,
	}).Info("face database ready")

	return db, nil
}

// encodeImage loads one image and extracts its single face descriptor.
// Any failure, and any face count other than one, skips the image.
func encodeImage(enc recognition.Encoder, path string) (recognition.Descriptor, bool) {
	log := logging.Component("facedb").WithField("image", filepath.Base(path))

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("unreadable image, skipping")
		return recognition.Descriptor{}, false
	}

	jpegData, err := imaging.EnsureJPEG(data)
	if err != nil {
		log.WithError(err).Warn("undecodable image, skipping")
		return recognition.Descriptor{}, false
	}

	faces, err := enc.DetectAndEncode(jpegData)
	if err != nil {
		log.WithError(err).Warn("face detection failed, skipping")
		return recognition.Descriptor{}, false
	}

	switch len(faces) {
	case 1:
		return faces[0].Descriptor, true
	case 0:
		log.Warn("no face found, skipping")
	default:
		log.Warnf("%d faces found, skipping", len(faces))
	}
	return recognition.Descriptor{}, false
}

// FromRecords builds a database directly from records, used when
// restoring a snapshot and in tests.
func FromRecords(facesDir string, records []Record) *Database {
	db := &Database{facesDir: facesDir}
	db.records = append(db.records, records...)
	return db
}

// Records returns the underlying records.
func (db *Database) Records() []Record {
	return db.records
}

// Len returns the number of records.
func (db *Database) Len() int {
	return len(db.records)
}

// FacesDir returns the directory the database was built from.
func (db *Database) FacesDir() string {
	return db.facesDir
}

// Summary is always derived from the records, so counts cannot drift.
func (db *Database) Summary() Summary {
	perPerson := make(map[string]int)
	for _, r := range db.records {
		perPerson[r.Name]++
	}
	return Summary{
		People:     len(perPerson),
		ImagesUsed: len(db.records),
		Encodings:  len(db.records),
		PerPerson:  perPerson,
		FacesDir:   db.facesDir,
	}
}

// Match finds the nearest record to the descriptor. ok is true only
// when the nearest distance is within tolerance.
func (db *Database) Match(d recognition.Descriptor, tolerance float64) (name string, distance float64, ok bool) {
	best := -1
	bestDist := 0.0

	for i := range db.records {
		dist := recognition.Distance(db.records[i].Descriptor, d)
		if best == -1 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	if best == -1 {
		return "", 0, false
	}
	return db.records[best].Name, bestDist, bestDist <= tolerance
}

// AveragePerPerson returns a new database with a single centroid record
// per person. Records are ordered by name for determinism.
func (db *Database) AveragePerPerson() *Database {
	byName := make(map[string][]recognition.Descriptor)
	for _, r := range db.records {
		byName[r.Name] = append(byName[r.Name], r.Descriptor)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	averaged := &Database{facesDir: db.facesDir}
	for _, name := range names {
		averaged.records = append(averaged.records, Record{
			Name:       name,
			Descriptor: recognition.Average(byName[name]),
		})
	}
	return averaged
}
