// Package orchestrator coordinates the multi-round exchange with the
// Anthropic Messages API for a single query and dispatches requested tool
// calls.
//
// Invariants:
//   - tool_use blocks and their corresponding tool_result entries stay
//     adjacent: the assistant's raw response is appended to history, then one
//     user turn bundles every result of that response, in request order.
//   - at most two tool rounds run per query; a response still requesting
//     tools after that is answered with its first text block, or a fixed
//     fallback when it has none.
//
// Flow:
//
//	user(query) -> assistant(tool_use) -> user(tool_result) -> assistant(text)
package orchestrator
