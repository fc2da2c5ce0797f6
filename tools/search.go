package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SearchInput is the input schema of search_course_content.
type SearchInput struct {
	Query        string `json:"query" jsonschema_description:"What to search for in the course content."`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title to search within (partial matches allowed, e.g. 'MCP', 'Introduction')."`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)."`
}

var searchInputSchema = GenerateSchema[SearchInput]()

// SearchTool searches course content with optional course and lesson filters.
type SearchTool struct {
	store Store
}

// NewSearchTool returns a content-search tool backed by the given store.
func NewSearchTool(s Store) *SearchTool {
	return &SearchTool{store: s}
}

func (t *SearchTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: searchInputSchema,
	}
}

// Execute runs the search and formats each hit as a [course - lesson] header
// followed by the chunk text. Sources are rebuilt from scratch per hit; an
// error or empty result set yields no sources at all.
func (t *SearchTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var in SearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("invalid search_course_content input: %w", err)
	}

	res := t.store.Search(ctx, in.Query, in.CourseName, in.LessonNumber)

	// Backend failures and not-found filters come back as result text so the
	// reasoning service can react; they carry no sources.
	if res.Err != "" {
		return Result{Text: res.Err}, nil
	}
	if res.IsEmpty() {
		return Result{Text: emptySearchMessage(in.CourseName, in.LessonNumber)}, nil
	}

	blocks := make([]string, 0, len(res.Documents))
	sources := make([]Source, 0, len(res.Documents))
	for i, doc := range res.Documents {
		meta := res.Metadata[i]

		header := "[" + meta.CourseTitle
		if meta.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
		}
		header += "]"
		blocks = append(blocks, header+"\n"+doc)

		src := Source{Title: meta.CourseTitle, Lesson: meta.LessonNumber}
		// Link lookup only makes sense when the hit is tied to a lesson.
		if meta.LessonNumber != nil {
			src.URL = t.store.GetLessonLink(ctx, meta.CourseTitle, *meta.LessonNumber)
		}
		sources = append(sources, src)
	}

	return Result{Text: strings.Join(blocks, "\n\n"), Sources: sources}, nil
}

func emptySearchMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}
