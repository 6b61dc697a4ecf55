package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var audioExtensions = []string{".mp3", ".m4a", ".aac", ".wav", ".ogg", ".flac"}

// GCSMusic downloads the background track from a bucket into a local
// cache path once. Object may name a single file, or a prefix ending in
// "/" whose first audio file (by name) is used.
type GCSMusic struct {
	client    *storage.Client
	bucket    string
	object    string
	cachePath string
}

func NewGCSMusic(ctx context.Context, bucket, object, cachePath, credentialsFile string) (*GCSMusic, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSMusic{
		client:    client,
		bucket:    bucket,
		object:    object,
		cachePath: cachePath,
	}, nil
}

func (m *GCSMusic) Close() error {
	return m.client.Close()
}

func (m *GCSMusic) Prepare(ctx context.Context) (string, error) {
	if info, err := os.Stat(m.cachePath); err == nil && info.Size() > 0 {
		slog.Debug("Using cached music", "path", m.cachePath)
		return m.cachePath, nil
	}

	name := m.object
	if name == "" || strings.HasSuffix(name, "/") {
		tracks, err := m.listTracks(ctx, name)
		if err != nil {
			return "", err
		}
		if len(tracks) == 0 {
			return "", fmt.Errorf("no audio files found in gs://%s/%s", m.bucket, name)
		}
		name = tracks[0]
	}

	slog.Info("Downloading music", "object", fmt.Sprintf("gs://%s/%s", m.bucket, name), "path", m.cachePath)
	if err := m.download(ctx, name); err != nil {
		return "", fmt.Errorf("failed to download music: %w", err)
	}
	return m.cachePath, nil
}

func (m *GCSMusic) listTracks(ctx context.Context, prefix string) ([]string, error) {
	it := m.client.Bucket(m.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var tracks []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if isAudio(attrs.Name) {
			tracks = append(tracks, attrs.Name)
		}
	}
	slices.Sort(tracks)
	return tracks, nil
}

func (m *GCSMusic) download(ctx context.Context, name string) error {
	r, err := m.client.Bucket(m.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	if err := os.MkdirAll(filepath.Dir(m.cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(m.cachePath), ".music-*")
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to download file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, m.cachePath)
}

func isAudio(name string) bool {
	return slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(name)))
}
