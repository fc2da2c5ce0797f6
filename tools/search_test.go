package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmont/coursechat/internal/store"
	"github.com/quillmont/coursechat/tools"
)

// fakeStore records the arguments of the last call and replays canned data.
type fakeStore struct {
	searchResults store.SearchResults
	course        *store.Course
	lessonLinks   map[string]string // "title/number" -> url

	gotQuery      string
	gotCourseName string
	gotLesson     *int
	linkCalls     int
}

func (f *fakeStore) Search(_ context.Context, query, courseName string, lessonNumber *int) store.SearchResults {
	f.gotQuery = query
	f.gotCourseName = courseName
	f.gotLesson = lessonNumber
	return f.searchResults
}

func (f *fakeStore) GetLessonLink(_ context.Context, courseTitle string, lessonNumber int) string {
	f.linkCalls++
	return f.lessonLinks[fmt.Sprintf("%s/%d", courseTitle, lessonNumber)]
}

func (f *fakeStore) GetCourseOutline(_ context.Context, courseName string) *store.Course {
	f.gotCourseName = courseName
	return f.course
}

func intPtr(n int) *int { return &n }

func TestSearchTool_FormatsHitsWithHeaders(t *testing.T) {
	fs := &fakeStore{
		searchResults: store.SearchResults{
			Documents: []string{"Content about MCP basics", "Advanced MCP topics"},
			Metadata: []store.ChunkMeta{
				{CourseTitle: "MCP Course", LessonNumber: intPtr(1), ChunkIndex: 0},
				{CourseTitle: "MCP Course", LessonNumber: intPtr(2), ChunkIndex: 7},
			},
			Distances: []float64{0.1, 0.2},
		},
		lessonLinks: map[string]string{
			"MCP Course/1": "https://example.com/lesson1",
			"MCP Course/2": "https://example.com/lesson2",
		},
	}
	st := tools.NewSearchTool(fs)

	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"MCP basics"}`))
	require.NoError(t, err)

	want := "[MCP Course - Lesson 1]\nContent about MCP basics\n\n[MCP Course - Lesson 2]\nAdvanced MCP topics"
	assert.Equal(t, want, res.Text)

	require.Len(t, res.Sources, 2)
	assert.Equal(t, tools.Source{Title: "MCP Course", Lesson: intPtr(1), URL: "https://example.com/lesson1"}, res.Sources[0])
	assert.Equal(t, tools.Source{Title: "MCP Course", Lesson: intPtr(2), URL: "https://example.com/lesson2"}, res.Sources[1])
}

func TestSearchTool_HeaderWithoutLessonNumber(t *testing.T) {
	fs := &fakeStore{
		searchResults: store.SearchResults{
			Documents: []string{"General course content"},
			Metadata:  []store.ChunkMeta{{CourseTitle: "Some Course"}},
			Distances: []float64{0.3},
		},
	}
	st := tools.NewSearchTool(fs)

	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"anything"}`))
	require.NoError(t, err)

	assert.Equal(t, "[Some Course]\nGeneral course content", res.Text)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, tools.Source{Title: "Some Course"}, res.Sources[0])
	assert.Zero(t, fs.linkCalls, "no link lookup without a lesson number")
}

func TestSearchTool_PassesFiltersThrough(t *testing.T) {
	fs := &fakeStore{searchResults: store.SearchResults{}}
	st := tools.NewSearchTool(fs)

	_, err := st.Execute(context.Background(),
		json.RawMessage(`{"query":"what is MCP","course_name":"MCP","lesson_number":3}`))
	require.NoError(t, err)

	assert.Equal(t, "what is MCP", fs.gotQuery)
	assert.Equal(t, "MCP", fs.gotCourseName)
	require.NotNil(t, fs.gotLesson)
	assert.Equal(t, 3, *fs.gotLesson)
}

func TestSearchTool_OmittedFiltersAreNil(t *testing.T) {
	fs := &fakeStore{searchResults: store.SearchResults{}}
	st := tools.NewSearchTool(fs)

	_, err := st.Execute(context.Background(), json.RawMessage(`{"query":"anything"}`))
	require.NoError(t, err)

	assert.Empty(t, fs.gotCourseName)
	assert.Nil(t, fs.gotLesson)
}

func TestSearchTool_EmptyResultMessages(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"no filters", `{"query":"q"}`, "No relevant content found."},
		{"course filter", `{"query":"q","course_name":"MCP"}`, "No relevant content found in course 'MCP'."},
		{"lesson filter", `{"query":"q","lesson_number":2}`, "No relevant content found in lesson 2."},
		{"both filters", `{"query":"q","course_name":"MCP","lesson_number":2}`, "No relevant content found in course 'MCP' in lesson 2."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := tools.NewSearchTool(&fakeStore{searchResults: store.SearchResults{}})
			res, err := st.Execute(context.Background(), json.RawMessage(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Text)
			assert.Empty(t, res.Sources)
		})
	}
}

func TestSearchTool_StoreErrorPassedThroughVerbatim(t *testing.T) {
	fs := &fakeStore{searchResults: store.ErrorResults("Search error: connection refused")}
	st := tools.NewSearchTool(fs)

	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"q"}`))
	require.NoError(t, err)
	assert.Equal(t, "Search error: connection refused", res.Text)
	assert.Empty(t, res.Sources)
}

func TestSearchTool_InvalidInputIsError(t *testing.T) {
	st := tools.NewSearchTool(&fakeStore{})
	_, err := st.Execute(context.Background(), json.RawMessage(`{"lesson_number":"two"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search_course_content")
}

func TestSearchTool_Definition(t *testing.T) {
	def := tools.NewSearchTool(&fakeStore{}).Definition()
	assert.Equal(t, "search_course_content", def.Name)
	assert.NotEmpty(t, def.Description)
	assert.Contains(t, def.InputSchema.Required, "query")
	assert.NotContains(t, def.InputSchema.Required, "course_name")
	assert.NotContains(t, def.InputSchema.Required, "lesson_number")
}
