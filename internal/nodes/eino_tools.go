package nodes

import (
	"context"
	"fmt"

	"giftmatch/internal/logger"
	"giftmatch/internal/services"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

// Tool names exposed to the assistant
const (
	ToolReadAssignedReading = "read_assigned_reading"
	ToolReadAssignment      = "read_assignment"
	ToolReadNotebookLecture = "read_notebook_lecture"
	ToolReadSlideLecture    = "read_slide_lecture"
	ToolReadSyllabus        = "read_syllabus"
)

// DocumentQuery is the input of the tools that search without a class restriction
type DocumentQuery struct {
	Query string `json:"query" jsonschema:"description=A hypothetical document in which similarity search would be performed upon"`
}

// ClassDocumentQuery is the input of the tools scoped to one class
type ClassDocumentQuery struct {
	Query   string `json:"query" jsonschema:"description=A hypothetical document in which similarity search would be performed upon"`
	ClassNo *int   `json:"class_no,omitempty" jsonschema:"description=The class number of the lecture (optional)"`
}

// AssignedReadingQuery requires the class the reading belongs to
type AssignedReadingQuery struct {
	Query   string `json:"query" jsonschema:"description=A hypothetical document in which similarity search would be performed upon"`
	ClassNo int    `json:"class_no" jsonschema:"description=The class number the reading is assigned for"`
}

type documentTool struct {
	name        string
	description string
	kind        services.DocumentKind
}

// unscopedTools search a kind of document across all classes
var unscopedTools = []documentTool{
	{ToolReadAssignment, "Read an assignment and return the content of the assignment", services.KindAssignment},
	{ToolReadNotebookLecture, "Read a lecture notebook and return the content of the lecture", services.KindLectureNotebook},
	{ToolReadSyllabus, "Read a syllabus and return the content of the syllabus", services.KindSyllabus},
}

// DocumentTools builds the five course-document tools over searcher
func DocumentTools(searcher *services.DocumentSearcher) ([]tool.InvokableTool, error) {
	reading, err := utils.InferTool(ToolReadAssignedReading, "Read an assigned reading from a specific class and return the content of the reading",
		func(ctx context.Context, in AssignedReadingQuery) (string, error) {
			classNo := in.ClassNo
			logSearch(ToolReadAssignedReading, in.Query, &classNo)
			return searcher.Search(ctx, services.KindAssignedReading, in.Query, &classNo)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool %s: %w", ToolReadAssignedReading, err)
	}

	slides, err := utils.InferTool(ToolReadSlideLecture, "Read a slide lecture and return the content of the lecture",
		func(ctx context.Context, in ClassDocumentQuery) (string, error) {
			logSearch(ToolReadSlideLecture, in.Query, in.ClassNo)
			return searcher.Search(ctx, services.KindLectureSlide, in.Query, in.ClassNo)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool %s: %w", ToolReadSlideLecture, err)
	}

	tools := []tool.InvokableTool{reading, slides}
	for _, dt := range unscopedTools {
		dt := dt
		t, err := utils.InferTool(dt.name, dt.description,
			func(ctx context.Context, in DocumentQuery) (string, error) {
				logSearch(dt.name, in.Query, nil)
				return searcher.Search(ctx, dt.kind, in.Query, nil)
			})
		if err != nil {
			return nil, fmt.Errorf("failed to build tool %s: %w", dt.name, err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func logSearch(toolName, query string, classNo *int) {
	event := logger.Debug().Str("tool", toolName).Str("query", query)
	if classNo != nil {
		event = event.Int("class_no", *classNo)
	}
	event.Msg("Document search")
}
