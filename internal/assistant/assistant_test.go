package assistant

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/comigor/azoai-go/internal/poll"
	"github.com/comigor/azoai-go/internal/render"
	"github.com/comigor/azoai-go/internal/retry"
	"github.com/comigor/azoai-go/internal/runstate"
	"github.com/comigor/azoai-go/pkg/tools"
)

type fakeService struct {
	uploaded    openai.FileBytesRequest
	assistant   openai.AssistantRequest
	threadReq   openai.CreateThreadAndRunRequest
	storeStates []string
	storePolls  int

	runs      []openai.Run // served by RetrieveRun, in order
	runPolls  int
	submitted []openai.ToolOutput
	afterTool openai.Run

	pages     []openai.MessagesList
	listAfter []*string

	files map[string][]byte

	deleted         []string
	deleteAsstError error
	cancelled       int
}

func (f *fakeService) CreateFile(context.Context, openai.FileRequest) (openai.File, error) {
	return openai.File{}, errors.New("unused")
}

func (f *fakeService) CreateFileBytes(_ context.Context, req openai.FileBytesRequest) (openai.File, error) {
	f.uploaded = req
	return openai.File{ID: "file-doc", FileName: req.Name}, nil
}

func (f *fakeService) GetFile(_ context.Context, id string) (openai.File, error) {
	return openai.File{ID: id, FileName: id + "-chart"}, nil
}

func (f *fakeService) GetFileContent(_ context.Context, id string) (openai.RawResponse, error) {
	return openai.RawResponse{ReadCloser: io.NopCloser(bytes.NewReader(f.files[id]))}, nil
}

func (f *fakeService) DeleteFile(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) CreateVectorStore(context.Context, openai.VectorStoreRequest) (openai.VectorStore, error) {
	return openai.VectorStore{ID: "vs_1", Status: "in_progress"}, nil
}

func (f *fakeService) RetrieveVectorStore(_ context.Context, id string) (openai.VectorStore, error) {
	status := f.storeStates[f.storePolls]
	f.storePolls++
	vs := openai.VectorStore{ID: id, Status: status}
	if status == "completed" {
		vs.FileCounts = openai.VectorStoreFileCount{Completed: 1, Total: 1}
	}
	return vs, nil
}

func (f *fakeService) DeleteVectorStore(_ context.Context, id string) (openai.VectorStoreDeleteResponse, error) {
	f.deleted = append(f.deleted, id)
	return openai.VectorStoreDeleteResponse{ID: id, Deleted: true}, nil
}

func (f *fakeService) CreateAssistant(_ context.Context, req openai.AssistantRequest) (openai.Assistant, error) {
	f.assistant = req
	return openai.Assistant{ID: "asst_1"}, nil
}

func (f *fakeService) DeleteAssistant(_ context.Context, id string) (openai.AssistantDeleteResponse, error) {
	if f.deleteAsstError != nil {
		return openai.AssistantDeleteResponse{}, f.deleteAsstError
	}
	f.deleted = append(f.deleted, id)
	return openai.AssistantDeleteResponse{ID: id, Deleted: true}, nil
}

func (f *fakeService) CreateThreadAndRun(_ context.Context, req openai.CreateThreadAndRunRequest) (openai.Run, error) {
	f.threadReq = req
	return openai.Run{ID: "run_1", ThreadID: "thread_1", Status: openai.RunStatusQueued}, nil
}

func (f *fakeService) RetrieveRun(_ context.Context, threadID, runID string) (openai.Run, error) {
	r := f.runs[f.runPolls]
	f.runPolls++
	r.ID, r.ThreadID = runID, threadID
	return r, nil
}

func (f *fakeService) CancelRun(_ context.Context, threadID, runID string) (openai.Run, error) {
	f.cancelled++
	return openai.Run{ID: runID, ThreadID: threadID, Status: openai.RunStatusCancelling}, nil
}

func (f *fakeService) SubmitToolOutputs(_ context.Context, threadID, runID string, req openai.SubmitToolOutputsRequest) (openai.Run, error) {
	f.submitted = append(f.submitted, req.ToolOutputs...)
	r := f.afterTool
	r.ID, r.ThreadID = runID, threadID
	return r, nil
}

func (f *fakeService) DeleteThread(_ context.Context, id string) (openai.ThreadDeleteResponse, error) {
	f.deleted = append(f.deleted, id)
	return openai.ThreadDeleteResponse{ID: id, Deleted: true}, nil
}

func (f *fakeService) ListMessage(_ context.Context, _ string, _ *int, order *string, after *string, _ *string, _ *string) (openai.MessagesList, error) {
	if order == nil || *order != "asc" {
		return openai.MessagesList{}, errors.New("messages must be listed oldest first")
	}
	f.listAfter = append(f.listAfter, after)
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func status(s openai.RunStatus) openai.Run { return openai.Run{Status: s} }

func text(id, role, value string) openai.Message {
	return openai.Message{ID: id, Role: role, Content: []openai.MessageContent{{Type: "text", Text: &openai.MessageText{Value: value}}}}
}

func strPtr(s string) *string { return &s }

func newWorkflow(f *fakeService) (*Workflow, *bytes.Buffer, afero.Fs) {
	out := &bytes.Buffer{}
	fs := afero.NewMemMapFs()
	return &Workflow{
		Assistants: f,
		Files:      f,
		Render:     &render.Renderer{Out: out, Fs: fs, Files: f},
		Deployment: "gpt-4o",
		Retry:      retry.None,
		Poll:       poll.Options{Interval: time.Millisecond},
	}, out, fs
}

func TestWorkflow_Completed(t *testing.T) {
	chart := []byte{0x89, 'P', 'N', 'G'}
	f := &fakeService{
		storeStates: []string{"in_progress", "completed"},
		runs: []openai.Run{
			status(openai.RunStatusQueued),
			status(openai.RunStatusInProgress),
			status(openai.RunStatusInProgress),
			status(openai.RunStatusCompleted),
		},
		pages: []openai.MessagesList{
			{Messages: []openai.Message{text("msg_1", "user", Question)}, HasMore: true, LastID: strPtr("msg_1")},
			{Messages: []openai.Message{{
				ID:   "msg_2",
				Role: "assistant",
				Content: []openai.MessageContent{
					{Type: "text", Text: &openai.MessageText{Value: "Product 113045 sold 22 units in February."}},
					{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "file-chart"}},
				},
			}}},
		},
		files: map[string][]byte{"file-chart": chart},
	}
	w, out, fs := newWorkflow(f)

	res, err := w.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, DocumentName, f.uploaded.Name)
	require.Equal(t, SalesDocument, f.uploaded.Bytes)
	require.Equal(t, openai.PurposeAssistants, f.uploaded.Purpose)
	require.Equal(t, 2, f.storePolls)

	require.Equal(t, Name, *f.assistant.Name)
	require.Equal(t, Instructions, *f.assistant.Instructions)
	require.Equal(t, "gpt-4o", f.assistant.Model)
	require.Equal(t, []string{"vs_1"}, f.assistant.ToolResources.FileSearch.VectorStoreIDs)
	require.Len(t, f.assistant.Tools, 2)

	require.Equal(t, "asst_1", f.threadReq.AssistantID)
	require.Equal(t, Question, f.threadReq.Thread.Messages[0].Content)

	require.Equal(t, 4, f.runPolls)
	require.Equal(t, openai.RunStatusCompleted, res.Run.Status)
	require.Len(t, res.Messages, 2)
	require.Equal(t, []*string{nil, strPtr("msg_1")}, f.listAfter)

	require.Equal(t, "[USER]: "+Question+"\n\n"+
		"[ASSISTANT]: Product 113045 sold 22 units in February.\n"+
		"<image: file-chart-chart.png>\n\n", out.String())
	got, err := afero.ReadFile(fs, "file-chart-chart.png")
	require.NoError(t, err)
	require.Equal(t, chart, got)

	require.Equal(t, []string{"thread_1", "asst_1", "vs_1", "file-doc"}, f.deleted)
}

func TestWorkflow_FailedRunRendersNothing(t *testing.T) {
	for _, terminal := range []openai.RunStatus{openai.RunStatusFailed, openai.RunStatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			f := &fakeService{
				storeStates: []string{"completed"},
				runs: []openai.Run{
					status(openai.RunStatusInProgress),
					{Status: terminal, LastError: &openai.RunLastError{Code: "server_error", Message: "boom"}},
				},
			}
			w, out, _ := newWorkflow(f)

			_, err := w.Run(context.Background(), Options{})
			var re *runstate.RunError
			require.ErrorAs(t, err, &re)
			require.Equal(t, terminal, re.Status)
			require.Empty(t, out.String())
			require.Empty(t, f.listAfter)
			require.Len(t, f.deleted, 4)
		})
	}
}

func TestWorkflow_SubmitsToolOutputs(t *testing.T) {
	f := &fakeService{
		storeStates: []string{"completed"},
		runs: []openai.Run{
			{
				Status: openai.RunStatusRequiresAction,
				RequiredAction: &openai.RunRequiredAction{
					Type: openai.RequiredActionTypeSubmitToolOutputs,
					SubmitToolOutputs: &openai.SubmitToolOutputs{ToolCalls: []openai.ToolCall{
						{ID: "call_1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "current_time", Arguments: "{}"}},
						{ID: "call_2", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "nope", Arguments: "{}"}},
					}},
				},
			},
			status(openai.RunStatusCompleted),
		},
		afterTool: status(openai.RunStatusQueued),
		pages:     []openai.MessagesList{{Messages: []openai.Message{text("msg_1", "assistant", "It is noon.")}}},
	}
	w, out, _ := newWorkflow(f)
	w.Tools = tools.NewManager()
	w.Tools.Register(tools.Clock{Now: func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }})

	_, err := w.Run(context.Background(), Options{Question: "What time is it?"})
	require.NoError(t, err)

	require.Len(t, f.assistant.Tools, 3)
	require.Equal(t, "current_time", f.assistant.Tools[2].Function.Name)
	require.Equal(t, []openai.ToolOutput{
		{ToolCallID: "call_1", Output: "2024-02-01T12:00:00Z"},
		{ToolCallID: "call_2", Output: "Error: tool not found: nope"},
	}, f.submitted)
	require.Equal(t, "[ASSISTANT]: It is noon.\n\n", out.String())
}

func TestWorkflow_ImpossibleTransition(t *testing.T) {
	f := &fakeService{
		storeStates: []string{"completed"},
		runs: []openai.Run{
			status(openai.RunStatusInProgress),
			status(openai.RunStatusQueued),
		},
	}
	w, out, _ := newWorkflow(f)

	_, err := w.Run(context.Background(), Options{})
	var te *runstate.TransitionError
	require.ErrorAs(t, err, &te)
	require.Empty(t, out.String())
}

func TestWorkflow_KeepSkipsCleanup(t *testing.T) {
	f := &fakeService{
		storeStates: []string{"completed"},
		runs:        []openai.Run{status(openai.RunStatusCompleted)},
		pages:       []openai.MessagesList{{}},
	}
	w, _, _ := newWorkflow(f)
	w.Keep = true

	res, err := w.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Empty(t, f.deleted)
	require.Equal(t, "thread_1", res.ThreadID)
}

func TestWorkflow_CleanupErrorsAreReported(t *testing.T) {
	f := &fakeService{
		storeStates:     []string{"completed"},
		runs:            []openai.Run{status(openai.RunStatusCompleted)},
		pages:           []openai.MessagesList{{}},
		deleteAsstError: &openai.APIError{HTTPStatusCode: http.StatusNotFound, Message: "gone"},
	}
	w, _, _ := newWorkflow(f)

	_, err := w.Run(context.Background(), Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "delete assistant asst_1")
	require.Equal(t, []string{"thread_1", "vs_1", "file-doc"}, f.deleted)
}

func TestWorkflow_VectorStoreExpired(t *testing.T) {
	f := &fakeService{storeStates: []string{"expired"}}
	w, _, _ := newWorkflow(f)

	_, err := w.Run(context.Background(), Options{})
	require.ErrorContains(t, err, "vector store vs_1 ended expired")
	require.Equal(t, []string{"vs_1", "file-doc"}, f.deleted)
}
