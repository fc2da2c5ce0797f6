package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// OutlineInput is the input schema of get_course_outline.
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title to get the outline for (partial matches allowed)."`
}

var outlineInputSchema = GenerateSchema[OutlineInput]()

// OutlineTool returns a course's structure: title, link, and lesson list.
// It produces no citation sources.
type OutlineTool struct {
	store Store
}

// NewOutlineTool returns an outline tool backed by the given store.
func NewOutlineTool(s Store) *OutlineTool {
	return &OutlineTool{store: s}
}

func (t *OutlineTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course including title, link, and all lessons",
		InputSchema: outlineInputSchema,
	}
}

func (t *OutlineTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var in OutlineInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Result{}, fmt.Errorf("invalid get_course_outline input: %w", err)
	}

	course := t.store.GetCourseOutline(ctx, in.CourseName)
	if course == nil {
		return Result{Text: fmt.Sprintf("No course found matching '%s'", in.CourseName)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", l.Number, l.Title)
	}
	return Result{Text: strings.TrimRight(b.String(), "\n")}, nil
}
