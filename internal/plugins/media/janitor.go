package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Janitor removes orphaned media files: files under productos/ that no
// record references, typically left behind by deletes or by uploads that
// failed after writing. Image files count as referenced when any record of
// the same product directory carries their token, so a record that lost one
// of its paths never loses the sibling files.
type Janitor struct {
	repo  MediaRepository
	store *Store
	grace time.Duration
	now   func() time.Time
}

// NewJanitor creates a janitor that never touches files younger than grace.
func NewJanitor(repo MediaRepository, store *Store, grace time.Duration) *Janitor {
	return &Janitor{repo: repo, store: store, grace: grace, now: time.Now}
}

// Sweep runs one pass and returns how many files were removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	refs, err := j.repo.ReferencedPaths(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading referenced media paths: %w", err)
	}

	exact := make(map[string]bool, len(refs))
	tokens := make(map[string]bool, len(refs))
	for _, p := range refs {
		exact[p] = true
		if key := tokenKey(p); key != "" {
			tokens[key] = true
		}
	}

	files, err := j.store.Walk(productsRoot)
	if err != nil {
		return 0, err
	}

	cutoff := j.now().Add(-j.grace)
	removed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if f.ModTime.After(cutoff) || exact[f.Path] {
			continue
		}
		if key := tokenKey(f.Path); key != "" && tokens[key] {
			continue
		}
		if err := j.store.Remove(f.Path); err != nil {
			slog.Warn("failed to remove orphaned media file", slog.String("path", f.Path), slog.Any("error", err))
			continue
		}
		slog.Debug("removed orphaned media file", slog.String("path", f.Path))
		removed++
	}
	return removed, nil
}

// Run sweeps every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("media janitor started", slog.Duration("interval", interval), slog.Duration("grace", j.grace))
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			n, err := j.Sweep(ctx)
			if err != nil {
				slog.Error("media janitor sweep failed", slog.Any("error", err))
				continue
			}
			slog.Info("media janitor sweep completed",
				slog.Int("removed", n),
				slog.Duration("took", time.Since(start)),
			)
		case <-ctx.Done():
			slog.Info("media janitor stopped")
			return
		}
	}
}

// tokenKey identifies an image derivative by product image directory and
// token. Returns "" for documents and for names without a token.
func tokenKey(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) != 6 || parts[0] != productsRoot || parts[2] != imagesDir {
		return ""
	}
	tok := TokenFromPath(p)
	if tok == "" {
		return ""
	}
	return imageBaseDir(p) + "|" + tok
}
