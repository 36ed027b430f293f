package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// Filter keys understood by DocumentStore.Retrieve through retriever.WithDSLInfo
const (
	FilterSourceType = "source_type"
	FilterClassNo    = "class_no"
)

const defaultRetrieveTopK = 40

// DocumentStore is a redis-backed course document index. It implements eino's
// indexer.Indexer and retriever.Retriever; retrieval ranks by keyword overlap.
type DocumentStore struct {
	store *RedisStorage
}

var (
	_ indexer.Indexer     = (*DocumentStore)(nil)
	_ retriever.Retriever = (*DocumentStore)(nil)
)

// NewDocumentStore creates a document index inside store's namespace
func NewDocumentStore(store *RedisStorage) *DocumentStore {
	return &DocumentStore{store: store}
}

func docKey(id string) string { return "doc:" + id }

func (d *DocumentStore) allKey() string { return d.store.Key("docs") }

func (d *DocumentStore) typeKey(sourceType string) string {
	return d.store.Key("docs:type:" + sourceType)
}

// Store indexes docs, assigning an ID to those without one
func (d *DocumentStore) Store(ctx context.Context, docs []*schema.Document, _ ...indexer.Option) ([]string, error) {
	ids := make([]string, 0, len(docs))
	pipe := d.store.Client().TxPipeline()
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		data, err := sonic.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
		}
		pipe.Set(ctx, d.store.Key(docKey(doc.ID)), data, 0)
		pipe.SAdd(ctx, d.allKey(), doc.ID)
		if sourceType := metaValue(doc, FilterSourceType); sourceType != "" {
			pipe.SAdd(ctx, d.typeKey(sourceType), doc.ID)
		}
		ids = append(ids, doc.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store documents: %w", err)
	}
	return ids, nil
}

// Retrieve returns up to TopK documents matching the DSL filter, best keyword match first
func (d *DocumentStore) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := defaultRetrieveTopK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)
	filter := options.DSLInfo

	setKey := d.allKey()
	if sourceType, ok := filter[FilterSourceType]; ok {
		setKey = d.typeKey(fmt.Sprint(sourceType))
	}

	ids, err := d.store.Client().SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		return []*schema.Document{}, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = d.store.Key(docKey(id))
	}
	values, err := d.store.Client().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	terms := tokenize(query)
	type scored struct {
		doc   *schema.Document
		score int
	}
	var hits []scored
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var doc schema.Document
		if err := sonic.UnmarshalString(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		if !matchesFilter(&doc, filter) {
			continue
		}
		hits = append(hits, scored{doc: &doc, score: overlap(terms, tokenize(doc.Content))})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	limit := len(hits)
	if options.TopK != nil && *options.TopK > 0 && *options.TopK < limit {
		limit = *options.TopK
	}
	out := make([]*schema.Document, 0, limit)
	for _, h := range hits[:limit] {
		h.doc.WithScore(float64(h.score))
		out = append(out, h.doc)
	}
	return out, nil
}

// matchesFilter compares every filter value with the document metadata as strings
func matchesFilter(doc *schema.Document, filter map[string]any) bool {
	for key, want := range filter {
		if metaValue(doc, key) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func metaValue(doc *schema.Document, key string) string {
	if doc.MetaData == nil {
		return ""
	}
	v, ok := doc.MetaData[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) > 2 {
			terms[word] = struct{}{}
		}
	}
	return terms
}

func overlap(query, doc map[string]struct{}) int {
	n := 0
	for term := range query {
		if _, ok := doc[term]; ok {
			n++
		}
	}
	return n
}

// LoadDocumentsFile reads a JSON array of documents ({id, content, meta_data}) from path
func LoadDocumentsFile(path string) ([]*schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents file: %w", err)
	}
	var docs []*schema.Document
	if err := sonic.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse documents file %s: %w", path, err)
	}
	return docs, nil
}
