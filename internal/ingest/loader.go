package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/quillmont/coursechat/internal/store"
)

// Sink is the slice of the store the loader writes to.
type Sink interface {
	AddCourse(ctx context.Context, c store.Course) error
	AddChunks(ctx context.Context, chunks []store.Chunk) error
	CourseTitles(ctx context.Context) ([]string, error)
}

// LoadDirectory parses every course script in dir and loads courses that are
// not cataloged yet. Returns how many courses and chunks were added.
func LoadDirectory(ctx context.Context, dir string, sink Sink, chunkSize, overlap int, logger *zap.Logger) (int, int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read docs dir %s: %w", dir, err)
	}

	existing, err := sink.CourseTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list existing courses: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		known[t] = struct{}{}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	coursesAdded, chunksAdded := 0, 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("open %s: %w", path, err)
		}
		doc, err := ParseCourseScript(f, chunkSize, overlap)
		_ = f.Close()
		if err != nil {
			logger.Warn("skipping unparseable course script", zap.String("file", name), zap.Error(err))
			continue
		}

		if _, ok := known[doc.Course.Title]; ok {
			logger.Debug("course already loaded", zap.String("title", doc.Course.Title))
			continue
		}

		if err := sink.AddCourse(ctx, doc.Course); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("add course %q: %w", doc.Course.Title, err)
		}
		if err := sink.AddChunks(ctx, doc.Chunks); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("add chunks for %q: %w", doc.Course.Title, err)
		}
		known[doc.Course.Title] = struct{}{}
		coursesAdded++
		chunksAdded += len(doc.Chunks)
		logger.Info("loaded course",
			zap.String("title", doc.Course.Title),
			zap.Int("lessons", len(doc.Course.Lessons)),
			zap.Int("chunks", len(doc.Chunks)),
		)
	}
	return coursesAdded, chunksAdded, nil
}
