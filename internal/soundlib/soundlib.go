// Package soundlib implements the Sample Library contract (spec §4.6):
// a persistent on-disk index of sample files under a base directory,
// backed by gorm.io/gorm + the sqlite driver. Grounded on the
// teacher's internal/datastore package (gorm.Open/AutoMigrate pattern
// in sqlite.go, the GormLogger shape in logger.go), trimmed of the
// teacher's metrics/multi-dialect machinery since this module has one
// schema and one engine.
package soundlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sinfonia-audio/sinfonia/internal/errors"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
)

// recognisedExtensions are the sample file types the library walk
// picks up (spec §4.6).
var recognisedExtensions = map[string]struct{}{
	".aiff": {}, ".flac": {}, ".midi": {}, ".ogg": {}, ".wav": {}, ".mp3": {},
}

// Sample is one indexed file, tagged for discovery.
type Sample struct {
	ID   int64
	Path string
	Tags []string
}

// Library is the path → identifier lookup LoadTheme consumes (spec
// §4.6).
type Library interface {
	// Open walks BaseDir, indexing recognised sample files. Re-opening
	// the same library must not produce duplicate rows for existing
	// paths (idempotent writes).
	Open() error

	// SampleIDByPath looks up a sample by its path relative to
	// BaseDir. ok is false if no such sample is indexed.
	SampleIDByPath(relPath string) (id int64, ok bool)

	// FullPathOfSample returns the absolute path for id.
	FullPathOfSample(id int64) (string, error)

	// Samples returns every indexed sample, snapshotted at Open time
	// (spec §9 open question: "specified as: snapshot at library
	// open; a rescan is not exposed").
	Samples() ([]Sample, error)

	Close() error
}

// sampleRow and tagRow are the gorm-persisted schema (spec §6
// "sample(id, path UNIQUE), tag(id, name UNIQUE), sample_tag(sample_id,
// tag_id) UNIQUE").
type sampleRow struct {
	ID   int64   `gorm:"primaryKey"`
	Path string  `gorm:"uniqueIndex"`
	Tags []tagRow `gorm:"many2many:sample_tag;"`
}

type tagRow struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

func (sampleRow) TableName() string { return "sample" }
func (tagRow) TableName() string    { return "tag" }

// GormLibrary is the gorm+sqlite-backed Library implementation.
type GormLibrary struct {
	BaseDir string
	DBPath  string

	db       *gorm.DB
	snapshot []Sample
	byPath   map[string]int64
	byID     map[int64]string
}

// NewGormLibrary returns an unopened library rooted at baseDir,
// persisting its index at dbPath.
func NewGormLibrary(baseDir, dbPath string) *GormLibrary {
	return &GormLibrary{BaseDir: baseDir, DBPath: dbPath}
}

func (l *GormLibrary) Open() error {
	log := logging.ForComponent("soundlib")

	if err := os.MkdirAll(filepath.Dir(l.DBPath), 0o755); err != nil {
		return errors.Newf("creating sample library directory: %w", err).
			Category(errors.CategoryDatabase).Build()
	}

	db, err := gorm.Open(sqlite.Open(l.DBPath), &gorm.Config{
		Logger: newGormLogger(200 * time.Millisecond),
	})
	if err != nil {
		return errors.Newf("opening sample library database: %w", err).
			Category(errors.CategoryDatabase).Build()
	}

	if err := db.AutoMigrate(&sampleRow{}, &tagRow{}); err != nil {
		return errors.Newf("migrating sample library schema: %w", err).
			Category(errors.CategoryDatabase).Build()
	}
	l.db = db

	if err := l.indexDirectory(log); err != nil {
		return err
	}

	return l.loadSnapshot()
}

func (l *GormLibrary) indexDirectory(log interface {
	Warn(msg string, args ...any)
}) error {
	return filepath.WalkDir(l.BaseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn("sample library walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := recognisedExtensions[ext]; !ok {
			return nil
		}
		rel, err := filepath.Rel(l.BaseDir, path)
		if err != nil {
			rel = path
		}

		var existing sampleRow
		err = l.db.Where("path = ?", rel).First(&existing).Error
		if err == nil {
			return nil // already indexed
		}
		if err != gorm.ErrRecordNotFound {
			return errors.Newf("looking up existing sample %q: %w", rel, err).
				Category(errors.CategoryDatabase).Build()
		}

		row := sampleRow{Path: rel}
		if err := l.db.Create(&row).Error; err != nil {
			return errors.Newf("indexing sample %q: %w", rel, err).
				Category(errors.CategoryDatabase).Build()
		}
		return nil
	})
}

func (l *GormLibrary) loadSnapshot() error {
	var rows []sampleRow
	if err := l.db.Preload("Tags").Find(&rows).Error; err != nil {
		return errors.Newf("loading sample library snapshot: %w", err).
			Category(errors.CategoryDatabase).Build()
	}

	l.snapshot = make([]Sample, 0, len(rows))
	l.byPath = make(map[string]int64, len(rows))
	l.byID = make(map[int64]string, len(rows))
	for _, r := range rows {
		tags := make([]string, len(r.Tags))
		for i, t := range r.Tags {
			tags[i] = t.Name
		}
		l.snapshot = append(l.snapshot, Sample{ID: r.ID, Path: r.Path, Tags: tags})
		l.byPath[r.Path] = r.ID
		l.byID[r.ID] = r.Path
	}
	return nil
}

func (l *GormLibrary) SampleIDByPath(relPath string) (int64, bool) {
	id, ok := l.byPath[relPath]
	return id, ok
}

func (l *GormLibrary) FullPathOfSample(id int64) (string, error) {
	rel, ok := l.byID[id]
	if !ok {
		return "", errors.Newf("sample id %d not found", id).Category(errors.CategorySampleNotFound).Build()
	}
	return filepath.Join(l.BaseDir, rel), nil
}

func (l *GormLibrary) Samples() ([]Sample, error) {
	out := make([]Sample, len(l.snapshot))
	copy(out, l.snapshot)
	return out, nil
}

func (l *GormLibrary) Close() error {
	if l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormLogger is a slimmed structured adapter over *slog.Logger,
// grounded on the teacher's datastore.GormLogger but without its
// metrics recording (no equivalent component in this module).
type gormLogger struct {
	slowThreshold time.Duration
}

func newGormLogger(slowThreshold time.Duration) gormlogger.Interface {
	return &gormLogger{slowThreshold: slowThreshold}
}

func (g *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return g }

func (g *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	logging.ForComponent("soundlib").InfoContext(ctx, fmt.Sprintf(msg, args...))
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	logging.ForComponent("soundlib").WarnContext(ctx, fmt.Sprintf(msg, args...))
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	logging.ForComponent("soundlib").ErrorContext(ctx, fmt.Sprintf(msg, args...))
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := logging.ForComponent("soundlib")
	switch {
	case err != nil && err != gorm.ErrRecordNotFound:
		log.ErrorContext(ctx, "sample library query failed", "sql", sql, "error", err, "duration", elapsed)
	case g.slowThreshold != 0 && elapsed > g.slowThreshold:
		log.WarnContext(ctx, "slow sample library query", "sql", sql, "duration", elapsed, "rows", rows)
	default:
		log.DebugContext(ctx, "sample library query", "sql", sql, "duration", elapsed, "rows", rows)
	}
}
