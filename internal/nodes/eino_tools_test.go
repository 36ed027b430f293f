package nodes

import (
	"context"
	"testing"

	"giftmatch/internal/services"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRetriever struct {
	dsl map[string]any
}

func (r *recordingRetriever) Retrieve(_ context.Context, _ string, opts ...retriever.Option) ([]*schema.Document, error) {
	r.dsl = retriever.GetCommonOptions(&retriever.Options{}, opts...).DSLInfo
	return []*schema.Document{{Content: "week one", MetaData: map[string]any{"source_url": "s1"}}}, nil
}

func TestDocumentTools(t *testing.T) {
	tools, err := DocumentTools(services.NewDocumentSearcher(&recordingRetriever{}, 0))
	require.NoError(t, err)
	require.Len(t, tools, 5)

	var names []string
	for _, tl := range tools {
		info, err := tl.Info(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, info.Desc)
		names = append(names, info.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolReadAssignedReading, ToolReadAssignment, ToolReadNotebookLecture, ToolReadSlideLecture, ToolReadSyllabus,
	}, names)
}

func TestDocumentToolFilters(t *testing.T) {
	r := &recordingRetriever{}
	tools, err := DocumentTools(services.NewDocumentSearcher(r, 0))
	require.NoError(t, err)

	byName := make(map[string]int)
	for i, tl := range tools {
		info, _ := tl.Info(context.Background())
		byName[info.Name] = i
	}

	out, err := tools[byName[ToolReadSlideLecture]].InvokableRun(context.Background(), `{"query":"loss functions","class_no":4}`)
	require.NoError(t, err)
	assert.Contains(t, out, "week one")
	assert.Equal(t, map[string]any{"source_type": "lecture_slide", "class_no": "4"}, r.dsl)

	_, err = tools[byName[ToolReadSyllabus]].InvokableRun(context.Background(), `{"query":"late policy"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"source_type": "syllabus"}, r.dsl)

	_, err = tools[byName[ToolReadAssignedReading]].InvokableRun(context.Background(), `{"query":"attention","class_no":2}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"source_type": "assigned_reading", "class_no": "2"}, r.dsl)
}
