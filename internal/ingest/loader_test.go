package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmont/coursechat/internal/store"
)

type fakeSink struct {
	titles  []string
	courses []store.Course
	chunks  []store.Chunk
}

func (f *fakeSink) AddCourse(_ context.Context, c store.Course) error {
	f.courses = append(f.courses, c)
	f.titles = append(f.titles, c.Title)
	return nil
}

func (f *fakeSink) AddChunks(_ context.Context, chunks []store.Chunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeSink) CourseTitles(context.Context) ([]string, error) {
	return f.titles, nil
}

func writeScript(t *testing.T, dir, name, title string) {
	t.Helper()
	content := "Course Title: " + title + "\n\nLesson 0: Intro\nSome lesson content here.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "course1.txt", "Course One")
	writeScript(t, dir, "course2.md", "Course Two")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("ignored"), 0o644))

	sink := &fakeSink{}
	courses, chunks, err := LoadDirectory(context.Background(), dir, sink, 800, 100, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, courses)
	assert.Equal(t, len(sink.chunks), chunks)
	require.Len(t, sink.courses, 2)
	// Files load in name order.
	assert.Equal(t, "Course One", sink.courses[0].Title)
	assert.Equal(t, "Course Two", sink.courses[1].Title)
}

func TestLoadDirectory_SkipsKnownCourses(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "course1.txt", "Already Loaded")
	writeScript(t, dir, "course2.txt", "Brand New")

	sink := &fakeSink{titles: []string{"Already Loaded"}}
	courses, _, err := LoadDirectory(context.Background(), dir, sink, 800, 100, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, courses)
	require.Len(t, sink.courses, 1)
	assert.Equal(t, "Brand New", sink.courses[0].Title)
}

func TestLoadDirectory_SkipsUnparseableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.txt"), []byte("no headers at all.\n"), 0o644))
	writeScript(t, dir, "good.txt", "Good Course")

	sink := &fakeSink{}
	courses, _, err := LoadDirectory(context.Background(), dir, sink, 800, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, courses)
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, _, err := LoadDirectory(context.Background(), "/nonexistent/path", &fakeSink{}, 800, 100, nil)
	assert.Error(t, err)
}
