// Package storage owns the on-disk workspace of a run and the optional
// background music asset.
package storage

import "context"

// MusicProvider makes the background track available locally and returns
// its path. An empty path means the video is rendered without music.
type MusicProvider interface {
	Prepare(ctx context.Context) (string, error)
}

// LocalMusic is a track that is expected to already be on disk.
type LocalMusic struct {
	Path string
}

func (m LocalMusic) Prepare(context.Context) (string, error) {
	return m.Path, nil
}
