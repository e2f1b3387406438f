package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/insideadapt/kb-portal/pkg/logger"
)

const markdownContentType = "text/markdown; charset=utf-8"

// SyncStats summarizes a mirror run.
type SyncStats struct {
	Transferred int
	Skipped     int
	Removed     int
}

// Pull mirrors every markdown object under prefix into dir, keeping the
// relative layout. Local markdown files with no matching object are removed
// before anything is downloaded, so a document moved upstream never exists
// in both places. Each file is written to a temp file and renamed so the
// content watcher never reads a partial document. Keys that would escape
// dir are skipped.
func Pull(ctx context.Context, store ObjectStore, prefix, dir string) (SyncStats, error) {
	var stats SyncStats
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return stats, err
	}
	keys := make(map[string]string, len(objects))
	order := make([]string, 0, len(objects))
	for _, obj := range objects {
		rel, ok := relativeKey(prefix, obj.Key)
		if !ok {
			stats.Skipped++
			continue
		}
		if _, dup := keys[rel]; !dup {
			order = append(order, rel)
		}
		keys[rel] = obj.Key
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	removed, err := prune(dir, keys)
	stats.Removed = removed
	if err != nil {
		return stats, fmt.Errorf("prune %s: %w", dir, err)
	}

	for _, rel := range order {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		key := keys[rel]
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := download(ctx, store, key, target); err != nil {
			return stats, fmt.Errorf("pull %s: %w", key, err)
		}
		stats.Transferred++
	}
	logger.Infof("content pull: prefix=%q dir=%s transferred=%d skipped=%d removed=%d", prefix, dir, stats.Transferred, stats.Skipped, stats.Removed)
	return stats, nil
}

// prune deletes markdown files under dir whose relative path is not in keep.
// A missing dir is not an error.
func prune(dir string, keep map[string]string) (int, error) {
	removed := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if _, ok := keep[filepath.ToSlash(rel)]; ok {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		logger.Infof("content pull: removed %s (no longer in bucket)", rel)
		removed++
		return nil
	})
	return removed, err
}

// Push uploads every markdown file under dir to prefix.
func Push(ctx context.Context, store ObjectStore, prefix, dir string) (SyncStats, error) {
	var stats SyncStats
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(info.Name(), ".md") {
			stats.Skipped++
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		key := path.Join(prefix, filepath.ToSlash(rel))
		if err := store.UploadFile(ctx, key, f, info.Size(), markdownContentType); err != nil {
			return fmt.Errorf("push %s: %w", key, err)
		}
		stats.Transferred++
		return nil
	})
	if err != nil {
		return stats, err
	}
	logger.Infof("content push: prefix=%q dir=%s transferred=%d skipped=%d", prefix, dir, stats.Transferred, stats.Skipped)
	return stats, nil
}

// relativeKey strips prefix from key and rejects anything that is not a
// plain relative markdown path.
func relativeKey(prefix, key string) (string, bool) {
	rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
	if rel == "" || !strings.HasSuffix(rel, ".md") {
		return "", false
	}
	clean := path.Clean(rel)
	if clean != rel || strings.HasPrefix(clean, "../") || clean == ".." || path.IsAbs(clean) {
		return "", false
	}
	return clean, true
}

func download(ctx context.Context, store ObjectStore, key, target string) error {
	rc, err := store.DownloadFile(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".pull-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
