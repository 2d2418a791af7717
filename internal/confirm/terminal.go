// Package confirm provides the interactive approval prompt shown when a
// governed tool requires human confirmation.
package confirm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/wardenhq/warden/internal/tool"
)

// Terminal asks for approval on the controlling terminal. It implements
// tool.ApprovalRequester and is meant for interactive sessions; daemonised
// runs should leave the requester unset so confirmable tools are refused
// instead of hanging on a prompt nobody sees.
type Terminal struct{}

func NewTerminal() *Terminal { return &Terminal{} }

func (t *Terminal) RequestApproval(ctx context.Context, req tool.ApprovalRequest) (tool.ApprovalResponse, error) {
	var approved bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Allow %s?", req.ToolName)).
			Description(describe(req)).
			Affirmative("Allow").
			Negative("Deny").
			Value(&approved),
	))

	if err := form.RunWithContext(ctx); err != nil {
		return tool.ApprovalResponse{}, fmt.Errorf("confirmation prompt: %w", err)
	}
	if !approved {
		return tool.ApprovalResponse{Approved: false, Reason: "declined at terminal"}, nil
	}
	return tool.ApprovalResponse{Approved: true}, nil
}

// describe renders the request for the prompt body. Argument values are
// truncated so a large file body cannot flood the terminal.
func describe(req tool.ApprovalRequest) string {
	var b strings.Builder
	if req.Description != "" {
		b.WriteString(req.Description)
	}
	if len(req.Arguments) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(req.Arguments))
	for k := range req.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := fmt.Sprintf("%v", req.Arguments[k])
		if len(v) > 120 {
			v = v[:117] + "..."
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", k, v)
	}
	return b.String()
}
