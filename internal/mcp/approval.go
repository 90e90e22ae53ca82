package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"

	DefaultApprovalTimeout = 120 * time.Second
	approvalPollInterval   = 500 * time.Millisecond
)

var ErrRejected = errors.New("action rejected by user")

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with extra context (e.g. element IDs)
}

type approvalBackend interface {
	CreateApproval(a *storage.Approval) error
	ApprovalStatus(id string) (string, error)
	DeleteApproval(id string) error
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process (app hosting the MCP server): channels plus emitted events
//   - Store-based (standalone MCP): rows in mcp_approvals, polled for a result
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan bool
	ctx     context.Context
	emitter service.EventEmitter
	timeout time.Duration
	log     *zap.Logger

	store approvalBackend
}

func NewApprovalQueue(ctx context.Context, emitter service.EventEmitter, log *zap.Logger) *ApprovalQueue {
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ApprovalQueue{
		pending: make(map[string]chan bool),
		ctx:     ctx,
		emitter: emitter,
		timeout: DefaultApprovalTimeout,
		log:     log,
	}
}

// SetStore enables store-based approval for standalone MCP.
func (q *ApprovalQueue) SetStore(store approvalBackend) {
	q.store = store
}

// SetTimeout overrides how long a request waits before it is rejected.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	if d > 0 {
		q.timeout = d
	}
}

// Request sends an approval request and blocks until approved, rejected,
// timed out or ctx is cancelled. A nil error means approved.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description string, metadata ...string) error {
	id := uuid.New().String()
	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}
	q.log.Info("approval requested", zap.String("id", id), zap.String("tool", tool))

	if q.store != nil {
		return q.requestViaStore(ctx, id, tool, description, meta)
	}
	return q.requestViaChannel(ctx, id, tool, description, meta)
}

func (q *ApprovalQueue) requestViaStore(ctx context.Context, id, tool, description, metadata string) error {
	err := q.store.CreateApproval(&storage.Approval{
		ID: id, Tool: tool, Description: description, Metadata: metadata,
	})
	if err != nil {
		return err
	}
	defer q.store.DeleteApproval(id)

	timeout := time.NewTimer(q.timeout)
	defer timeout.Stop()
	ticker := time.NewTicker(approvalPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := q.store.ApprovalStatus(id)
			if err != nil {
				q.log.Warn("approval poll failed", zap.String("id", id), zap.Error(err))
				continue
			}
			switch status {
			case storage.ApprovalApproved:
				return nil
			case storage.ApprovalRejected:
				return fmt.Errorf("%w: %s", ErrRejected, tool)
			}
		case <-timeout.C:
			return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
		case <-ctx.Done():
			return ctx.Err()
		case <-q.ctx.Done():
			return q.ctx.Err()
		}
	}
}

func (q *ApprovalQueue) requestViaChannel(ctx context.Context, id, tool, description, metadata string) error {
	ch := make(chan bool, 1)

	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(q.ctx, EventApprovalRequired, PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	})

	timeout := time.NewTimer(q.timeout)
	defer timeout.Stop()

	select {
	case approved := <-ch:
		if !approved {
			return fmt.Errorf("%w: %s", ErrRejected, tool)
		}
		return nil
	case <-timeout.C:
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": id})
		return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-ctx.Done():
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": id})
		return ctx.Err()
	}
}

// Approve marks a pending action as approved (in-process mode).
func (q *ApprovalQueue) Approve(actionID string) bool {
	return q.resolve(actionID, true)
}

// Reject marks a pending action as rejected (in-process mode).
func (q *ApprovalQueue) Reject(actionID string) bool {
	return q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) bool {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- approved:
		return true
	default:
		return false
	}
}

// Pending returns the ids of actions waiting in-process.
func (q *ApprovalQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
