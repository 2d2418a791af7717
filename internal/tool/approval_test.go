package tool

import (
	"context"
	"errors"
	"testing"
	"time"
)

// funcRequester adapts a function to ApprovalRequester.
type funcRequester func(ctx context.Context, req ApprovalRequest) (ApprovalResponse, error)

func (f funcRequester) RequestApproval(ctx context.Context, req ApprovalRequest) (ApprovalResponse, error) {
	return f(ctx, req)
}

func TestRequestConfirmation_Approved(t *testing.T) {
	t.Parallel()

	requester := funcRequester(func(_ context.Context, req ApprovalRequest) (ApprovalResponse, error) {
		if req.ToolName != "git_push" {
			t.Errorf("ToolName = %s", req.ToolName)
		}
		return ApprovalResponse{Approved: true}, nil
	})

	resp, err := requestConfirmation(context.Background(), requester, ApprovalRequest{ToolName: "git_push"}, time.Second)
	if err != nil || !resp.Approved {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
}

func TestRequestConfirmation_TimeoutDeniesByDefault(t *testing.T) {
	t.Parallel()

	requester := funcRequester(func(ctx context.Context, _ ApprovalRequest) (ApprovalResponse, error) {
		<-ctx.Done() // human never answers
		return ApprovalResponse{}, ctx.Err()
	})

	resp, err := requestConfirmation(context.Background(), requester, ApprovalRequest{ToolName: "git_push"}, 20*time.Millisecond)
	if resp.Approved {
		t.Fatal("timeout approved the request")
	}
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("err = %v, want ErrConfirmationTimeout", err)
	}
}

func TestRequestConfirmation_RequesterErrorDenies(t *testing.T) {
	t.Parallel()

	boom := errors.New("channel unavailable")
	requester := funcRequester(func(context.Context, ApprovalRequest) (ApprovalResponse, error) {
		return ApprovalResponse{}, boom
	})

	resp, err := requestConfirmation(context.Background(), requester, ApprovalRequest{}, time.Second)
	if resp.Approved {
		t.Fatal("error approved the request")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestTrustedWindow(t *testing.T) {
	t.Parallel()

	w := NewTrustedWindow()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if w.Active() {
		t.Fatal("fresh window active")
	}

	w.Open(10 * time.Minute)
	if !w.Active() {
		t.Fatal("opened window inactive")
	}

	now = now.Add(11 * time.Minute)
	if w.Active() {
		t.Fatal("window active past its deadline")
	}

	w.Open(10 * time.Minute)
	w.Close()
	if w.Active() {
		t.Fatal("window active after Close")
	}
}
