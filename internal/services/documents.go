package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// DocumentKind is the source_type of an indexed course document
type DocumentKind string

const (
	KindAssignedReading DocumentKind = "assigned_reading"
	KindAssignment      DocumentKind = "assignment"
	KindLectureNotebook DocumentKind = "lecture_notebook"
	KindLectureSlide    DocumentKind = "lecture_slide"
	KindSyllabus        DocumentKind = "syllabus"
)

// Metadata keys carried by every indexed chunk
const (
	MetaSourceType        = "source_type"
	MetaClassNo           = "class_no"
	MetaSourceURL         = "source_url"
	MetaSourceDescription = "source_description"
	MetaOrder             = "order"
	MetaPreContext        = "pre_context"
	MetaPostContext       = "post_context"
)

// DefaultSearchTopK is how many chunks a search asks the retriever for
const DefaultSearchTopK = 40

// DocumentSearcher runs filtered similarity searches and renders the hits for a model
type DocumentSearcher struct {
	retriever retriever.Retriever
	topK      int
}

// NewDocumentSearcher wraps r. topK <= 0 uses DefaultSearchTopK.
func NewDocumentSearcher(r retriever.Retriever, topK int) *DocumentSearcher {
	if topK <= 0 {
		topK = DefaultSearchTopK
	}
	return &DocumentSearcher{retriever: r, topK: topK}
}

// Search finds chunks of the given kind, optionally restricted to one class, and renders them
// as a <results> block grouped by source
func (s *DocumentSearcher) Search(ctx context.Context, kind DocumentKind, query string, classNo *int) (string, error) {
	filter := map[string]any{MetaSourceType: string(kind)}
	if classNo != nil {
		filter[MetaClassNo] = strconv.Itoa(*classNo)
	}

	docs, err := s.retriever.Retrieve(ctx, query,
		retriever.WithTopK(s.topK),
		retriever.WithDSLInfo(filter),
	)
	if err != nil {
		return "", fmt.Errorf("document search failed: %w", err)
	}
	return RenderResults(docs), nil
}

type source struct {
	url         string
	description string
	chunks      []*schema.Document
}

// RenderResults groups chunks by source url in first-hit order and orders each source's
// chunks by their position in the document
func RenderResults(docs []*schema.Document) string {
	var sources []*source
	byURL := make(map[string]*source)
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		url := metaString(doc, MetaSourceURL)
		src, ok := byURL[url]
		if !ok {
			src = &source{url: url, description: metaString(doc, MetaSourceDescription)}
			byURL[url] = src
			sources = append(sources, src)
		}
		src.chunks = append(src.chunks, doc)
	}

	var b strings.Builder
	b.WriteString("<results>")
	for _, src := range sources {
		sort.SliceStable(src.chunks, func(i, j int) bool {
			return metaInt(src.chunks[i], MetaOrder) < metaInt(src.chunks[j], MetaOrder)
		})
		b.WriteString("<source>")
		fmt.Fprintf(&b, "<description>%s</description>", src.description)
		fmt.Fprintf(&b, "<url>%s</url>", src.url)
		b.WriteString("<content>")
		for i, chunk := range src.chunks {
			if i > 0 {
				b.WriteString("\n...\n")
			}
			b.WriteString(chunkText(chunk))
		}
		b.WriteString("</content>")
		b.WriteString("</source>")
	}
	b.WriteString("</results>")
	return b.String()
}

func chunkText(doc *schema.Document) string {
	parts := []string{metaString(doc, MetaPreContext), doc.Content, metaString(doc, MetaPostContext)}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func metaString(doc *schema.Document, key string) string {
	if doc.MetaData == nil {
		return ""
	}
	switch v := doc.MetaData[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func metaInt(doc *schema.Document, key string) int {
	if doc.MetaData == nil {
		return 0
	}
	switch v := doc.MetaData[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}
