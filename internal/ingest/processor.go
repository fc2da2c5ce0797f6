// Package ingest parses course scripts and loads them into the store.
//
// Script format:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<lesson transcript...>
//
//	Lesson 1: ...
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/quillmont/coursechat/internal/store"
)

var lessonHeaderRe = regexp.MustCompile(`^Lesson (\d+):\s*(.+)$`)

// Document is one parsed course script: catalog record plus content chunks.
type Document struct {
	Course store.Course
	Chunks []store.Chunk
}

// ParseCourseScript reads a course script and chunks its lesson transcripts
// into pieces of at most chunkSize characters with the given overlap.
func ParseCourseScript(r io.Reader, chunkSize, overlap int) (*Document, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size)")
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	doc := &Document{}
	var (
		currentLesson *int
		lessonText    strings.Builder
		chunkIndex    int
	)

	flushLesson := func() {
		text := strings.TrimSpace(lessonText.String())
		lessonText.Reset()
		if text == "" {
			return
		}
		lesson := currentLesson
		for _, piece := range chunkText(text, chunkSize, overlap) {
			doc.Chunks = append(doc.Chunks, store.Chunk{
				Content:      piece,
				CourseTitle:  doc.Course.Title,
				LessonNumber: lesson,
				Index:        chunkIndex,
			})
			chunkIndex++
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")

		switch {
		case strings.HasPrefix(line, "Course Title:"):
			doc.Course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			doc.Course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			doc.Course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		case strings.HasPrefix(line, "Lesson Link:"):
			if n := len(doc.Course.Lessons); n > 0 {
				doc.Course.Lessons[n-1].Link = strings.TrimSpace(strings.TrimPrefix(line, "Lesson Link:"))
			}
		default:
			if m := lessonHeaderRe.FindStringSubmatch(line); m != nil {
				flushLesson()
				num, err := strconv.Atoi(m[1])
				if err != nil {
					return nil, fmt.Errorf("bad lesson number in %q: %w", line, err)
				}
				currentLesson = &num
				doc.Course.Lessons = append(doc.Course.Lessons, store.Lesson{
					Number: num,
					Title:  strings.TrimSpace(m[2]),
				})
				continue
			}
			if line != "" {
				lessonText.WriteString(line)
				lessonText.WriteString(" ")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read course script: %w", err)
	}
	flushLesson()

	if doc.Course.Title == "" {
		return nil, fmt.Errorf("course script has no 'Course Title:' header")
	}
	return doc, nil
}

// chunkText splits text into sentence-aligned pieces of at most chunkSize
// characters; consecutive pieces share roughly overlap characters of trailing
// context.
func chunkText(text string, chunkSize, overlap int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		size := 0
		j := i
		for j < len(sentences) {
			next := len(sentences[j])
			if j > i {
				next++ // joining space
			}
			if size+next > chunkSize && j > i {
				break
			}
			size += next
			j++
		}
		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// Walk back from j until the shared tail reaches the overlap budget;
		// always advance by at least one sentence.
		next := j
		carried := 0
		for next > i+1 && carried+len(sentences[next-1]) <= overlap {
			carried += len(sentences[next-1]) + 1
			next--
		}
		i = next
	}
	return chunks
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace. Good enough for lecture transcripts.
var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	marked := sentenceEndRe.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
