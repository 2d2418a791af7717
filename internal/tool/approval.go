package tool

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ApprovalRequest is sent to an ApprovalRequester when a tool needs human
// confirmation before it runs.
type ApprovalRequest struct {
	// ID is a unique identifier for this request.
	ID string

	// ToolName is the resolved name of the tool awaiting approval.
	ToolName string

	// Description is the tool's own description.
	Description string

	// Arguments are the resolved arguments the tool would run with.
	Arguments map[string]any
}

// ApprovalResponse is the human's decision.
type ApprovalResponse struct {
	Approved bool
	Reason   string
}

// ApprovalRequester asks a human for confirmation. Implementations may
// block indefinitely awaiting a response; the executor bounds the wait
// with a timeout and denies by default when it expires.
type ApprovalRequester interface {
	RequestApproval(ctx context.Context, req ApprovalRequest) (ApprovalResponse, error)
}

// requestConfirmation runs one confirmation round trip under a deadline.
// Timeout and requester errors both deny; a timeout is additionally
// reported as ErrConfirmationTimeout.
func requestConfirmation(
	ctx context.Context,
	requester ApprovalRequester,
	req ApprovalRequest,
	timeout time.Duration,
) (ApprovalResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		resp ApprovalResponse
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		resp, err := requester.RequestApproval(ctx, req)
		ch <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return ApprovalResponse{Approved: false, Reason: o.err.Error()}, o.err
		}
		return o.resp, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ApprovalResponse{Approved: false, Reason: "timed out"}, ErrConfirmationTimeout
		}
		return ApprovalResponse{Approved: false, Reason: "cancelled"}, ctx.Err()
	}
}

// TrustedWindow is a time-boxed state during which confirmation prompts
// auto-approve, for a user who has just said "go ahead for the next N
// minutes". Safety blocks are unaffected: a hard-blocked command stays
// blocked inside a trusted window.
type TrustedWindow struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time // injectable for testing
}

// NewTrustedWindow creates an inactive trusted window.
func NewTrustedWindow() *TrustedWindow {
	return &TrustedWindow{now: time.Now}
}

// Open activates the window for the given duration, replacing any earlier
// deadline.
func (w *TrustedWindow) Open(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.until = w.now().Add(d)
}

// Close deactivates the window immediately.
func (w *TrustedWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.until = time.Time{}
}

// Active reports whether the window is currently open.
func (w *TrustedWindow) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.until.IsZero() && w.now().Before(w.until)
}
