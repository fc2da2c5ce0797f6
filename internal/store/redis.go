package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// Embedder turns text into a vector for indexing and querying.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds connection and index parameters for a RedisStore.
type Config struct {
	Addrs      []string
	Password   string
	KeyPrefix  string // default "coursechat:"
	MaxResults int    // default 5
	VectorDims int
	Embedder   Embedder
	Logger     *zap.Logger
}

// RedisStore keeps the course catalog and a RediSearch vector index of
// content chunks in Redis 8+.
type RedisStore struct {
	client     rueidis.Client
	embedder   Embedder
	prefix     string
	maxResults int
	dims       int
	logger     *zap.Logger
}

// NewRedisStore connects to Redis via rueidis.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.VectorDims <= 0 {
		return nil, fmt.Errorf("vector dimensions are required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "coursechat:"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}

	return &RedisStore{
		client:     client,
		embedder:   cfg.Embedder,
		prefix:     cfg.KeyPrefix,
		maxResults: cfg.MaxResults,
		dims:       cfg.VectorDims,
		logger:     cfg.Logger,
	}, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *RedisStore) Close() {
	s.client.Close()
}

func (s *RedisStore) indexName() string {
	return strings.ReplaceAll(s.prefix, ":", "_") + "chunks"
}

func (s *RedisStore) chunkPrefix() string { return s.prefix + "chunk:" }

func (s *RedisStore) courseKey(title string) string { return s.prefix + "course:" + title }

func (s *RedisStore) titlesKey() string { return s.prefix + "courses" }

// EnsureIndex creates the chunk vector index if it does not exist yet.
func (s *RedisStore) EnsureIndex(ctx context.Context) error {
	infoCmd := s.client.B().Arbitrary("FT.INFO").Args(s.indexName()).Build()
	err := s.client.Do(ctx, infoCmd).Error()
	if err == nil {
		return nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unknown index name") &&
		!strings.Contains(strings.ToLower(err.Error()), "no such index") {
		return fmt.Errorf("probe index: %w", err)
	}

	args := []string{
		s.indexName(), "ON", "HASH",
		"PREFIX", "1", s.chunkPrefix(),
		"SCHEMA",
		"content", "TEXT",
		"course_title", "TAG",
		"lesson_number", "NUMERIC",
		"chunk_index", "NUMERIC",
		"vector", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dims),
		"DISTANCE_METRIC", "COSINE",
	}
	createCmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, createCmd).Error(); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.logger.Info("created chunk index", zap.String("index", s.indexName()))
	return nil
}

// Search embeds the query and runs a KNN FT.SEARCH with optional course and
// lesson pre-filters. Failures are reported inside the result set.
func (s *RedisStore) Search(ctx context.Context, query, courseName string, lessonNumber *int) SearchResults {
	resolvedTitle := ""
	if courseName != "" {
		titles, err := s.CourseTitles(ctx)
		if err != nil {
			return ErrorResults("Search error: " + err.Error())
		}
		title, ok := matchTitle(courseName, titles)
		if !ok {
			return ErrorResults(fmt.Sprintf("No course found matching '%s'", courseName))
		}
		resolvedTitle = title
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return ErrorResults("Search error: " + err.Error())
	}

	queryStr := buildKNNQuery(resolvedTitle, lessonNumber, s.maxResults)
	args := []string{
		s.indexName(), queryStr,
		"RETURN", "4", "content", "course_title", "lesson_number", "__vector_score",
		"SORTBY", "__vector_score",
		"LIMIT", "0", strconv.Itoa(s.maxResults),
		"PARAMS", "2", "BLOB", vectorToBytes(vec),
		"DIALECT", "2",
	}
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return ErrorResults("Search error: " + err.Error())
	}

	return parseSearchReply(raw)
}

// GetLessonLink resolves a lesson URL by exact course title, or "".
func (s *RedisStore) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	course := s.getCourse(ctx, courseTitle)
	if course == nil {
		return ""
	}
	if l := course.Lesson(lessonNumber); l != nil {
		return l.Link
	}
	return ""
}

// GetCourseOutline returns the catalog record for a fuzzily matched course
// name, or nil when nothing matches.
func (s *RedisStore) GetCourseOutline(ctx context.Context, courseName string) *Course {
	titles, err := s.CourseTitles(ctx)
	if err != nil {
		s.logger.Warn("course title listing failed", zap.Error(err))
		return nil
	}
	title, ok := matchTitle(courseName, titles)
	if !ok {
		return nil
	}
	return s.getCourse(ctx, title)
}

// AddCourse writes the catalog record and registers the title.
func (s *RedisStore) AddCourse(ctx context.Context, c Course) error {
	if c.Title == "" {
		return fmt.Errorf("course title is required")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal course: %w", err)
	}
	setCmd := s.client.B().Set().Key(s.courseKey(c.Title)).Value(string(b)).Build()
	if err := s.client.Do(ctx, setCmd).Error(); err != nil {
		return fmt.Errorf("store course %q: %w", c.Title, err)
	}
	saddCmd := s.client.B().Sadd().Key(s.titlesKey()).Member(c.Title).Build()
	if err := s.client.Do(ctx, saddCmd).Error(); err != nil {
		return fmt.Errorf("register course title %q: %w", c.Title, err)
	}
	return nil
}

// AddChunks embeds and indexes content chunks.
func (s *RedisStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	for _, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Content)
		if err != nil {
			return fmt.Errorf("embed chunk %d of %q: %w", ch.Index, ch.CourseTitle, err)
		}

		key := fmt.Sprintf("%s%s:%d", s.chunkPrefix(), ch.CourseTitle, ch.Index)
		cmd := s.client.B().Hset().Key(key).FieldValue().
			FieldValue("content", ch.Content).
			FieldValue("course_title", ch.CourseTitle).
			FieldValue("chunk_index", strconv.Itoa(ch.Index)).
			FieldValue("vector", vectorToBytes(vec))
		if ch.LessonNumber != nil {
			cmd = cmd.FieldValue("lesson_number", strconv.Itoa(*ch.LessonNumber))
		}
		if err := s.client.Do(ctx, cmd.Build()).Error(); err != nil {
			return fmt.Errorf("store chunk %s: %w", key, err)
		}
	}
	return nil
}

// CourseCount returns the number of cataloged courses.
func (s *RedisStore) CourseCount(ctx context.Context) (int, error) {
	n, err := s.client.Do(ctx, s.client.B().Scard().Key(s.titlesKey()).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return int(n), nil
}

// CourseTitles returns all cataloged course titles, sorted.
func (s *RedisStore) CourseTitles(ctx context.Context) ([]string, error) {
	titles, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.titlesKey()).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	sort.Strings(titles)
	return titles, nil
}

func (s *RedisStore) getCourse(ctx context.Context, title string) *Course {
	res := s.client.Do(ctx, s.client.B().Get().Key(s.courseKey(title)).Build())
	if err := res.Error(); err != nil {
		if !rueidis.IsRedisNil(err) {
			s.logger.Warn("course lookup failed", zap.String("title", title), zap.Error(err))
		}
		return nil
	}
	raw, err := res.ToString()
	if err != nil {
		return nil
	}
	var c Course
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logger.Warn("corrupt course record", zap.String("title", title), zap.Error(err))
		return nil
	}
	return &c
}

// matchTitle resolves a possibly partial course name against the catalog:
// exact match, then case-insensitive match, then case-insensitive substring
// (first hit in sorted title order).
func matchTitle(name string, titles []string) (string, bool) {
	for _, t := range titles {
		if t == name {
			return t, true
		}
	}
	for _, t := range titles {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	lower := strings.ToLower(name)
	for _, t := range titles {
		if strings.Contains(strings.ToLower(t), lower) {
			return t, true
		}
	}
	return "", false
}

// buildKNNQuery renders the FT.SEARCH query string with optional pre-filters.
func buildKNNQuery(courseTitle string, lessonNumber *int, k int) string {
	var filters []string
	if courseTitle != "" {
		filters = append(filters, fmt.Sprintf("@course_title:{%s}", escapeTag(courseTitle)))
	}
	if lessonNumber != nil {
		filters = append(filters, fmt.Sprintf("@lesson_number:[%d %d]", *lessonNumber, *lessonNumber))
	}

	knn := fmt.Sprintf("[KNN %d @vector $BLOB]", k)
	if len(filters) == 0 {
		return "*=>" + knn
	}
	return fmt.Sprintf("(%s)=>%s", strings.Join(filters, " "), knn)
}

// parseSearchReply turns the RESP2 FT.SEARCH reply into SearchResults.
// Layout is 2-stride: [total, key1, fields1, key2, fields2, ...].
func parseSearchReply(raw []rueidis.RedisMessage) SearchResults {
	if len(raw) == 0 {
		return SearchResults{}
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return ErrorResults("Search error: malformed search reply")
	}
	if total == 0 {
		return SearchResults{}
	}

	var out SearchResults
	for i := 1; i+1 < len(raw); i += 2 {
		fieldsArr, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := make(map[string]string, len(fieldsArr)/2)
		for j := 0; j+1 < len(fieldsArr); j += 2 {
			name, err := fieldsArr[j].ToString()
			if err != nil {
				continue
			}
			value, err := fieldsArr[j+1].ToString()
			if err != nil {
				continue
			}
			fields[name] = value
		}

		meta := ChunkMeta{CourseTitle: fields["course_title"]}
		if v, ok := fields["lesson_number"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				meta.LessonNumber = &n
			}
		}
		if v, ok := fields["chunk_index"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				meta.ChunkIndex = n
			}
		}

		distance := 0.0
		if v, ok := fields["__vector_score"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				distance = f
			}
		}

		out.Documents = append(out.Documents, fields["content"])
		out.Metadata = append(out.Metadata, meta)
		out.Distances = append(out.Distances, distance)
	}
	return out
}

// escapeTag escapes RediSearch tag syntax characters in a filter value.
var tagEscaper = strings.NewReplacer(
	`\`, `\\`, `{`, `\{`, `}`, `\}`, `|`, `\|`, `,`, `\,`, `:`, `\:`,
	` `, `\ `, `-`, `\-`, `(`, `\(`, `)`, `\)`, `'`, `\'`, `"`, `\"`,
)

func escapeTag(s string) string {
	return tagEscaper.Replace(s)
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
