// Package archive keeps a copy of every uploaded file so an ingestion can be
// traced back to the bytes it was run against.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/admission_cycle/config"
)

// Driver identifies an archive backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverNone       Driver = "none"
)

// ErrNotFound is returned by Get when nothing is stored under a key.
var ErrNotFound = errors.New("archived upload not found")

// Store persists raw upload bytes under a key.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Open selects a Store from the configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch Driver(cfg.ArchiveDriver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.ArchiveFSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.ArchiveS3Bucket,
			Region:          cfg.ArchiveS3Region,
			Endpoint:        cfg.ArchiveS3Endpoint,
			PathStyle:       cfg.ArchiveS3PathStyle,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
	case DriverNone:
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", cfg.ArchiveDriver)
	}
}

// UploadKey builds uploads/<table>/<yyyy>/<mm>/<uuid>-<filename>.
func UploadKey(table, filename string, at time.Time) string {
	at = at.UTC()
	return path.Join("uploads", strings.ToLower(table),
		fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", int(at.Month())),
		uuid.NewString()+"-"+cleanName(filename))
}

// cleanName keeps the base name of filename and replaces characters that are
// awkward in object keys.
func cleanName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload.csv"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Discard is the "none" driver.
type Discard struct{}

func (Discard) Driver() Driver { return DriverNone }

func (Discard) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	return nil
}

func (Discard) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("archive disabled, %s: %w", key, ErrNotFound)
}
