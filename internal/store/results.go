package store

// ChunkMeta is the metadata carried alongside one search hit.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// SearchResults is the outcome of one store query: parallel slices of
// document text, metadata and relevance distance, plus an optional error
// string. An error-bearing result always has empty slices.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMeta
	Distances []float64
	Err       string
}

// ErrorResults returns an empty result set carrying an error message.
func ErrorResults(msg string) SearchResults {
	return SearchResults{Err: msg}
}

// IsEmpty reports whether the result set holds no documents, regardless of
// whether an error is set.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}
