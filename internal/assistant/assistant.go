// Package assistant runs the retrieval augmented assistant workflow: upload
// a document, index it in a vector store, ask an assistant about it, wait
// for the run to finish and print the thread.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/multierr"

	"github.com/comigor/azoai-go/internal/llm"
	"github.com/comigor/azoai-go/internal/logger"
	"github.com/comigor/azoai-go/internal/poll"
	"github.com/comigor/azoai-go/internal/render"
	"github.com/comigor/azoai-go/internal/retry"
	"github.com/comigor/azoai-go/internal/runstate"
	"github.com/comigor/azoai-go/pkg/tools"
)

var log = logger.Component("assistant")

const (
	defaultPageSize = 100
	maxToolRounds   = 10
	cleanupTimeout  = 30 * time.Second
)

// ErrTooManyToolRounds is returned when a run keeps asking for tool outputs.
var ErrTooManyToolRounds = errors.New("assistant: run requested tool outputs too many times")

// Options describe what to ask about which document.
type Options struct {
	Question     string
	Document     []byte
	DocumentName string
}

func (o Options) withDefaults() Options {
	if o.Question == "" {
		o.Question = Question
	}
	if len(o.Document) == 0 {
		o.Document = SalesDocument
	}
	if o.DocumentName == "" {
		o.DocumentName = DocumentName
	}
	return o
}

// Workflow holds the collaborators of one assistant run.
type Workflow struct {
	Assistants llm.AssistantClient
	Files      llm.FileClient
	// Tools provides function tools; nil means none.
	Tools  *tools.Manager
	Render *render.Renderer

	Deployment string
	Retry      retry.Policy
	Poll       poll.Options
	// Keep leaves the remote resources in place instead of deleting them.
	Keep     bool
	PageSize int
}

// Result identifies what the workflow created and how the run ended.
type Result struct {
	FileID        string
	VectorStoreID string
	AssistantID   string
	ThreadID      string
	Run           openai.Run
	Messages      []openai.Message
}

// Run executes the workflow. The thread is rendered only when the run
// completed; any other terminal status is returned as a *runstate.RunError.
// Remote resources are deleted afterwards unless Keep is set, and cleanup
// failures are appended to the returned error.
func (w *Workflow) Run(ctx context.Context, opts Options) (res *Result, err error) {
	opts = opts.withDefaults()
	res = &Result{}
	var cleanup cleanupStack
	defer func() {
		if w.Keep {
			log.Info("keeping remote resources", "file_id", res.FileID, "vector_store_id", res.VectorStoreID,
				"assistant_id", res.AssistantID, "thread_id", res.ThreadID)
			return
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		err = multierr.Append(err, cleanup.run(cctx))
	}()

	file, err := do(ctx, w, func(ctx context.Context) (openai.File, error) {
		return w.Files.CreateFileBytes(ctx, openai.FileBytesRequest{
			Name:    opts.DocumentName,
			Bytes:   opts.Document,
			Purpose: openai.PurposeAssistants,
		})
	})
	if err != nil {
		return res, fmt.Errorf("upload %s: %w", opts.DocumentName, err)
	}
	res.FileID = file.ID
	cleanup.push("file "+file.ID, func(ctx context.Context) error {
		return w.Files.DeleteFile(ctx, file.ID)
	})
	log.Info("uploaded document", "file_id", file.ID, "name", opts.DocumentName)

	store, err := w.createVectorStore(ctx, file.ID, &cleanup)
	if err != nil {
		return res, err
	}
	res.VectorStoreID = store.ID

	asst, err := w.createAssistant(ctx, file.ID, store.ID)
	if err != nil {
		return res, err
	}
	res.AssistantID = asst.ID
	cleanup.push("assistant "+asst.ID, func(ctx context.Context) error {
		_, err := w.Assistants.DeleteAssistant(ctx, asst.ID)
		return err
	})

	run, err := do(ctx, w, func(ctx context.Context) (openai.Run, error) {
		return w.Assistants.CreateThreadAndRun(ctx, openai.CreateThreadAndRunRequest{
			RunRequest: openai.RunRequest{AssistantID: asst.ID},
			Thread: openai.ThreadRequest{
				Messages: []openai.ThreadMessage{{Role: openai.ThreadMessageRoleUser, Content: opts.Question}},
			},
		})
	})
	if err != nil {
		return res, fmt.Errorf("create thread and run: %w", err)
	}
	res.ThreadID = run.ThreadID
	cleanup.push("thread "+run.ThreadID, func(ctx context.Context) error {
		_, err := w.Assistants.DeleteThread(ctx, run.ThreadID)
		return err
	})
	log.Info("run started", "thread_id", run.ThreadID, "run_id", run.ID, "status", run.Status)

	run, err = w.awaitRun(ctx, run)
	res.Run = run
	if err != nil {
		return res, err
	}
	if err := runstate.Outcome(run); err != nil {
		return res, err
	}

	msgs, err := w.listMessages(ctx, run.ThreadID)
	if err != nil {
		return res, err
	}
	res.Messages = msgs
	if err := w.Render.Thread(ctx, msgs); err != nil {
		return res, fmt.Errorf("render thread %s: %w", run.ThreadID, err)
	}
	return res, nil
}

func (w *Workflow) createVectorStore(ctx context.Context, fileID string, cleanup *cleanupStack) (openai.VectorStore, error) {
	store, err := do(ctx, w, func(ctx context.Context) (openai.VectorStore, error) {
		return w.Assistants.CreateVectorStore(ctx, openai.VectorStoreRequest{
			Name:    "contoso-sales",
			FileIDs: []string{fileID},
		})
	})
	if err != nil {
		return store, fmt.Errorf("create vector store: %w", err)
	}
	cleanup.push("vector store "+store.ID, func(ctx context.Context) error {
		_, err := w.Assistants.DeleteVectorStore(ctx, store.ID)
		return err
	})

	if store.Status == vectorStoreInProgress {
		store, err = poll.Await(ctx, func(ctx context.Context) (openai.VectorStore, error) {
			return do(ctx, w, func(ctx context.Context) (openai.VectorStore, error) {
				return w.Assistants.RetrieveVectorStore(ctx, store.ID)
			})
		}, func(vs openai.VectorStore) bool {
			return vs.Status != vectorStoreInProgress
		}, w.Poll, func(vs openai.VectorStore) {
			log.Debug("vector store status", "vector_store_id", vs.ID, "status", vs.Status,
				"completed", vs.FileCounts.Completed, "in_progress", vs.FileCounts.InProgress)
		})
		if err != nil {
			return store, fmt.Errorf("await vector store: %w", err)
		}
	}
	if store.Status != vectorStoreCompleted {
		return store, fmt.Errorf("vector store %s ended %s", store.ID, store.Status)
	}
	if store.FileCounts.Failed > 0 {
		return store, fmt.Errorf("vector store %s: %d of %d files failed to index",
			store.ID, store.FileCounts.Failed, store.FileCounts.Total)
	}
	log.Info("vector store ready", "vector_store_id", store.ID)
	return store, nil
}

const (
	vectorStoreInProgress = "in_progress"
	vectorStoreCompleted  = "completed"
)

func (w *Workflow) createAssistant(ctx context.Context, fileID, storeID string) (openai.Assistant, error) {
	name, instructions := Name, Instructions
	toolDefs := []openai.AssistantTool{
		{Type: openai.AssistantToolTypeFileSearch},
		{Type: openai.AssistantToolTypeCodeInterpreter},
	}
	if w.Tools != nil {
		toolDefs = append(toolDefs, w.Tools.Definitions()...)
	}
	req := openai.AssistantRequest{
		Model:        w.Deployment,
		Name:         &name,
		Instructions: &instructions,
		Tools:        toolDefs,
		ToolResources: &openai.AssistantToolResource{
			FileSearch:      &openai.AssistantToolFileSearch{VectorStoreIDs: []string{storeID}},
			CodeInterpreter: &openai.AssistantToolCodeInterpreter{FileIDs: []string{fileID}},
		},
	}
	asst, err := do(ctx, w, func(ctx context.Context) (openai.Assistant, error) {
		return w.Assistants.CreateAssistant(ctx, req)
	})
	if err != nil {
		return asst, fmt.Errorf("create assistant: %w", err)
	}
	log.Info("assistant created", "assistant_id", asst.ID, "tools", len(toolDefs))
	return asst, nil
}

// awaitRun polls the run until it reaches a terminal status, answering tool
// output requests on the way. Every observed status is checked against the
// run lifecycle.
func (w *Workflow) awaitRun(ctx context.Context, run openai.Run) (openai.Run, error) {
	threadID, runID := run.ThreadID, run.ID
	tracker := runstate.NewTracker(runID, run.Status)
	fetch := func(ctx context.Context) (openai.Run, error) {
		r, err := do(ctx, w, func(ctx context.Context) (openai.Run, error) {
			return w.Assistants.RetrieveRun(ctx, threadID, runID)
		})
		if err != nil {
			return r, err
		}
		return r, tracker.Observe(ctx, r.Status)
	}
	settled := func(r openai.Run) bool {
		return runstate.IsTerminal(r.Status) || runstate.NeedsAction(r.Status)
	}

	for rounds := 0; ; {
		if !settled(run) {
			var err error
			run, err = poll.Await(ctx, fetch, settled, w.Poll, nil)
			if err != nil {
				return run, fmt.Errorf("await run %s: %w", runID, err)
			}
		}
		if !runstate.NeedsAction(run.Status) {
			log.Info("run finished", "run_id", run.ID, "status", run.Status, "observations", tracker.Observations())
			return run, nil
		}

		rounds++
		if rounds > maxToolRounds {
			w.cancelRun(ctx, run)
			return run, ErrTooManyToolRounds
		}
		next, err := w.submitToolOutputs(ctx, run)
		if err != nil {
			return run, err
		}
		if err := tracker.Observe(ctx, next.Status); err != nil {
			return next, err
		}
		run = next
	}
}

func (w *Workflow) submitToolOutputs(ctx context.Context, run openai.Run) (openai.Run, error) {
	var calls []openai.ToolCall
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		calls = run.RequiredAction.SubmitToolOutputs.ToolCalls
	}
	manager := w.Tools
	if manager == nil {
		manager = tools.NewManager()
	}
	outputs := manager.ExecuteAll(ctx, calls)
	log.Info("submitting tool outputs", "run_id", run.ID, "calls", len(calls))

	next, err := do(ctx, w, func(ctx context.Context) (openai.Run, error) {
		return w.Assistants.SubmitToolOutputs(ctx, run.ThreadID, run.ID, openai.SubmitToolOutputsRequest{ToolOutputs: outputs})
	})
	if err != nil {
		return run, fmt.Errorf("submit tool outputs for run %s: %w", run.ID, err)
	}
	return next, nil
}

func (w *Workflow) cancelRun(ctx context.Context, run openai.Run) {
	if _, err := w.Assistants.CancelRun(ctx, run.ThreadID, run.ID); err != nil {
		log.Warn("cancel run failed", "run_id", run.ID, "error", err)
	}
}

// listMessages pages through the thread oldest first.
func (w *Workflow) listMessages(ctx context.Context, threadID string) ([]openai.Message, error) {
	limit := w.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	order := "asc"

	var all []openai.Message
	var after *string
	for {
		page, err := do(ctx, w, func(ctx context.Context) (openai.MessagesList, error) {
			return w.Assistants.ListMessage(ctx, threadID, &limit, &order, after, nil, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("list messages of thread %s: %w", threadID, err)
		}
		all = append(all, page.Messages...)
		if !page.HasMore || len(page.Messages) == 0 {
			return all, nil
		}
		last := page.Messages[len(page.Messages)-1].ID
		if page.LastID != nil && *page.LastID != "" {
			last = *page.LastID
		}
		after = &last
	}
}

func do[T any](ctx context.Context, w *Workflow, op func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, w.Retry, op)
}

// cleanupStack deletes remote resources in reverse creation order.
type cleanupStack struct {
	steps []cleanupStep
}

type cleanupStep struct {
	what string
	fn   func(context.Context) error
}

func (s *cleanupStack) push(what string, fn func(context.Context) error) {
	s.steps = append(s.steps, cleanupStep{what: what, fn: fn})
}

func (s *cleanupStack) run(ctx context.Context) error {
	var err error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if stepErr := step.fn(ctx); stepErr != nil {
			err = multierr.Append(err, fmt.Errorf("delete %s: %w", step.what, stepErr))
			continue
		}
		log.Debug("deleted", "resource", step.what)
	}
	s.steps = nil
	return err
}
