package tools

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"

	"github.com/quillmont/coursechat/internal/store"
)

// ToolDefinition is the machine-readable description of one tool: the name
// the reasoning service dispatches on, a description, and the JSON schema of
// the tool's input.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
}

// Source is one citation attached to an answer: where a piece of retrieved
// content came from.
type Source struct {
	Title  string `json:"title"`
	Lesson *int   `json:"lesson,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Result is the outcome of one tool execution. Text is what goes back to the
// reasoning service; Sources carry citation metadata for the caller.
type Result struct {
	Text    string
	Sources []Source
}

// Tool is a named, schema-described capability. Implementations must be safe
// to execute repeatedly; they hold no per-execution state.
type Tool interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}

// Store is the retrieval backend consumed by the tool variants.
type Store interface {
	// Search runs a content search. Failures are reported inside the result
	// set, not as a Go error. A nil lessonNumber or empty courseName means
	// "no filter"; fuzzy course-name matching is the store's job.
	Search(ctx context.Context, query, courseName string, lessonNumber *int) store.SearchResults
	// GetLessonLink resolves a lesson URL, or "" when unknown.
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string
	// GetCourseOutline returns the outline for a (fuzzily matched) course
	// name, or nil when no course matches.
	GetCourseOutline(ctx context.Context, courseName string) *store.Course
}

// GenerateSchema derives the Anthropic tool input schema from a Go struct.
// Fields without omitempty are marked required.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}
