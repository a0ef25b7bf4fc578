package raciswarm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/raciswarm/raciswarm/agent"
	"github.com/raciswarm/raciswarm/core"
)

func TestService_EndToEnd(t *testing.T) {
	svc := New()

	svc.RegisterAgent(agent.NewForwardingAgent("starter", core.RoleResponsible, "admin"))
	svc.RegisterAgent(agent.NewStaticAgent("admin", core.RoleAccountable, "done: 42"))

	if _, err := svc.RegisterSwarm("math", []string{"arithmetic"}, "starter", "admin"); err != nil {
		t.Fatalf("RegisterSwarm failed: %v", err)
	}

	res, err := svc.SubmitRequest(context.Background(), "arithmetic", "user-1", "what is 6*7?")
	if err != nil {
		t.Fatalf("SubmitRequest failed: %v", err)
	}
	if !strings.Contains(res.Content, "42") {
		t.Errorf("unexpected terminal content %q", res.Content)
	}

	conv, err := svc.Conversation(res.ConversationID)
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if conv.State != core.StateAwaitingUser {
		t.Errorf("expected awaiting_user, got %s", conv.State)
	}

	if err := svc.Close(res.ConversationID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := svc.Reply(context.Background(), res.ConversationID, "more"); !errors.Is(err, core.ErrConversationClosed) {
		t.Errorf("expected ErrConversationClosed, got %v", err)
	}
}

func TestService_UnsupportedCapability(t *testing.T) {
	svc := New()

	_, err := svc.SubmitRequest(context.Background(), "time-travel", "user-1", "take me to 1985")
	if !errors.Is(err, core.ErrNoMatchingSwarm) {
		t.Fatalf("expected ErrNoMatchingSwarm, got %v", err)
	}
}

func TestUserFacingMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{core.ErrNoMatchingSwarm, "not supported"},
		{core.ErrConversationClosed, "has ended"},
		{errors.New("boom"), "could not complete"},
	}
	for _, tt := range tests {
		if got := UserFacingMessage(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("UserFacingMessage(%v) = %q, want substring %q", tt.err, got, tt.want)
		}
	}
}
