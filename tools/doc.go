// Package tools defines the retrieval tool contracts, the tool variants the
// reasoning service may invoke, and the Dispatcher that routes execution.
//
// Includes:
//   - Tool: definition + execute contract; Execute returns an explicit
//     {text, sources} Result instead of mutating tool state.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - SearchTool (search_course_content), OutlineTool (get_course_outline).
//   - Dispatcher: name-indexed registry; unknown tool names are surfaced as
//     result text so the reasoning loop keeps going.
package tools
