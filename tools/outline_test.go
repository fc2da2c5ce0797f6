package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmont/coursechat/internal/store"
	"github.com/quillmont/coursechat/tools"
)

func TestOutlineTool_RendersCourseStructure(t *testing.T) {
	fs := &fakeStore{course: &store.Course{
		Title: "Building RAG Systems",
		Link:  "https://example.com/rag",
		Lessons: []store.Lesson{
			{Number: 0, Title: "Introduction"},
			{Number: 1, Title: "Chunking Strategies"},
			{Number: 2, Title: "Retrieval"},
		},
	}}
	ot := tools.NewOutlineTool(fs)

	res, err := ot.Execute(context.Background(), json.RawMessage(`{"course_name":"RAG"}`))
	require.NoError(t, err)

	want := "Course: Building RAG Systems\n" +
		"Course Link: https://example.com/rag\n" +
		"Lessons (3):\n" +
		"Lesson 0: Introduction\n" +
		"Lesson 1: Chunking Strategies\n" +
		"Lesson 2: Retrieval"
	assert.Equal(t, want, res.Text)
	assert.Empty(t, res.Sources)
	assert.Equal(t, "RAG", fs.gotCourseName)
}

func TestOutlineTool_OmitsEmptyCourseLink(t *testing.T) {
	fs := &fakeStore{course: &store.Course{
		Title:   "Linkless",
		Lessons: []store.Lesson{{Number: 1, Title: "Only Lesson"}},
	}}
	ot := tools.NewOutlineTool(fs)

	res, err := ot.Execute(context.Background(), json.RawMessage(`{"course_name":"Linkless"}`))
	require.NoError(t, err)
	assert.Equal(t, "Course: Linkless\nLessons (1):\nLesson 1: Only Lesson", res.Text)
}

func TestOutlineTool_CourseNotFound(t *testing.T) {
	ot := tools.NewOutlineTool(&fakeStore{})

	res, err := ot.Execute(context.Background(), json.RawMessage(`{"course_name":"Nonexistent"}`))
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Nonexistent'", res.Text)
	assert.Empty(t, res.Sources)
}

func TestOutlineTool_Definition(t *testing.T) {
	def := tools.NewOutlineTool(&fakeStore{}).Definition()
	assert.Equal(t, "get_course_outline", def.Name)
	assert.Contains(t, def.InputSchema.Required, "course_name")
}
