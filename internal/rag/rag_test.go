package rag_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmont/coursechat/internal/orchestrator"
	"github.com/quillmont/coursechat/internal/rag"
	"github.com/quillmont/coursechat/internal/session"
	"github.com/quillmont/coursechat/tools"
)

// scriptedTransport replays canned responses and captures request bodies.
type scriptedTransport struct {
	responses [][]byte
	calls     int
	bodies    [][]byte
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	s.bodies = append(s.bodies, b)

	body := s.responses[len(s.responses)-1]
	if s.calls < len(s.responses) {
		body = s.responses[s.calls]
	}
	s.calls++

	resp := &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

type fakeCatalog struct {
	titles []string
	err    error
}

func (f *fakeCatalog) CourseCount(context.Context) (int, error) { return len(f.titles), f.err }
func (f *fakeCatalog) CourseTitles(context.Context) ([]string, error) {
	return f.titles, f.err
}

// citingTool returns a fixed result with one source.
type citingTool struct{}

func (citingTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "search_course_content",
		Description: "search",
		InputSchema: tools.GenerateSchema[struct {
			Query string `json:"query"`
		}](),
	}
}

func (citingTool) Execute(context.Context, json.RawMessage) (tools.Result, error) {
	lesson := 1
	return tools.Result{
		Text:    "[Course A - Lesson 1]\nsome content",
		Sources: []tools.Source{{Title: "Course A", Lesson: &lesson, URL: "https://example.com/1"}},
	}, nil
}

func newSystem(t *testing.T, st *scriptedTransport) *rag.System {
	t.Helper()
	c := anthropic.NewClient(
		option.WithHTTPClient(&http.Client{Transport: st}),
		option.WithAPIKey("test-key"),
	)
	gen := orchestrator.New(&c, orchestrator.Options{})
	disp, err := tools.NewDispatcher(nil, citingTool{})
	require.NoError(t, err)
	return rag.New(gen, disp, session.NewManager(2, 0), &fakeCatalog{}, nil)
}

const (
	textResponse = `{"role":"assistant","stop_reason":"end_turn",
		"content":[{"type":"text","text":"Final answer."}]}`
	toolUseResponse = `{"role":"assistant","stop_reason":"tool_use",
		"content":[{"type":"tool_use","id":"t1","name":"search_course_content","input":{"query":"x"}}]}`
)

func TestQuery_WrapsPromptAndCreatesSession(t *testing.T) {
	st := &scriptedTransport{responses: [][]byte{[]byte(textResponse)}}
	sys := newSystem(t, st)

	answer, sources, sid, err := sys.Query(context.Background(), "What is RAG?", "")
	require.NoError(t, err)
	assert.Equal(t, "Final answer.", answer)
	assert.Empty(t, sources, "no tool ran, no sources")
	assert.NotEmpty(t, sid, "empty session id must be replaced by a fresh one")

	var req struct {
		Messages []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(st.bodies[0], &req))
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Answer this question about course materials: What is RAG?", req.Messages[0].Content[0].Text)
}

func TestQuery_CollectsAndResetsSources(t *testing.T) {
	st := &scriptedTransport{responses: [][]byte{
		[]byte(toolUseResponse), []byte(textResponse), // first query: one tool round
		[]byte(textResponse), // second query: direct answer
	}}
	sys := newSystem(t, st)

	_, sources, sid, err := sys.Query(context.Background(), "q1", "")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Course A", sources[0].Title)
	assert.Equal(t, "https://example.com/1", sources[0].URL)

	// Sources do not leak into the next query.
	_, sources, _, err = sys.Query(context.Background(), "q2", sid)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestQuery_HistoryCarriesAcrossQueries(t *testing.T) {
	st := &scriptedTransport{responses: [][]byte{[]byte(textResponse)}}
	sys := newSystem(t, st)

	_, _, sid, err := sys.Query(context.Background(), "first question", "")
	require.NoError(t, err)
	_, _, _, err = sys.Query(context.Background(), "second question", sid)
	require.NoError(t, err)

	var req struct {
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
	}
	require.NoError(t, json.Unmarshal(st.bodies[1], &req))
	require.NotEmpty(t, req.System)
	assert.Contains(t, req.System[0].Text, "User: first question")
	assert.Contains(t, req.System[0].Text, "Assistant: Final answer.")
	assert.NotContains(t, req.System[0].Text, "Answer this question about course materials",
		"history records the raw question, not the wrapped prompt")
}

func TestCourseAnalytics(t *testing.T) {
	sys := rag.New(nil, nil, nil, &fakeCatalog{titles: []string{"A", "B", "C"}}, nil)
	a, err := sys.CourseAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, a.TotalCourses)
	assert.Equal(t, []string{"A", "B", "C"}, a.CourseTitles)
}
