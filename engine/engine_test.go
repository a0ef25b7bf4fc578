package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raciswarm/raciswarm/archive"
	"github.com/raciswarm/raciswarm/core"
	"github.com/raciswarm/raciswarm/router"
)

// collectObserver records transition events for assertions.
type collectObserver struct {
	mu     sync.Mutex
	events []core.TransitionEvent
}

func (o *collectObserver) OnTransition(ev core.TransitionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *collectObserver) all() []core.TransitionEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]core.TransitionEvent(nil), o.events...)
}

type testAgent struct {
	id   string
	role core.Role
	fn   func(ctx context.Context, slice []core.Fragment, goal string) (core.Response, error)

	mu    sync.Mutex
	calls int
}

func (a *testAgent) ID() string             { return a.id }
func (a *testAgent) Role() core.Role        { return a.role }
func (a *testAgent) Capabilities() []string { return nil }

func (a *testAgent) Respond(ctx context.Context, slice []core.Fragment, goal string) (core.Response, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.fn(ctx, slice, goal)
}

func (a *testAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func delegate(to, goal string) core.Response {
	return core.Response{Content: goal, Delegation: &core.Delegation{Recipient: to, Goal: goal}}
}

func answer(content string) core.Response {
	return core.Response{Content: content}
}

// fileSwarm registers the canonical test swarm: starter (Responsible) always
// forwards to admin (Accountable), admin consults helper once before
// answering.
func fileSwarm(t *testing.T) (*router.Registry, *testAgent, *testAgent, *testAgent) {
	t.Helper()
	starter := &testAgent{id: "starter", role: core.RoleResponsible, fn: func(_ context.Context, _ []core.Fragment, goal string) (core.Response, error) {
		return delegate("admin", goal), nil
	}}
	helper := &testAgent{id: "helper", role: core.RoleConsulted, fn: func(_ context.Context, _ []core.Fragment, _ string) (core.Response, error) {
		return answer("helper input"), nil
	}}
	admin := &testAgent{id: "admin", role: core.RoleAccountable}
	admin.fn = func(_ context.Context, slice []core.Fragment, goal string) (core.Response, error) {
		// Consult helper exactly once per turn, then answer.
		for _, f := range slice {
			if f.Sender == "helper" {
				return answer("final answer"), nil
			}
		}
		return delegate("helper", "need input on: "+goal), nil
	}

	reg := router.NewRegistry(nil)
	reg.RegisterAgent(starter)
	reg.RegisterAgent(admin)
	reg.RegisterAgent(helper)
	_, err := reg.RegisterSwarm("file-swarm", []string{"file-generation"}, "starter", "admin", "helper")
	require.NoError(t, err)
	return reg, starter, admin, helper
}

func TestSubmitRequest_NoMatchingSwarm(t *testing.T) {
	reg, _, _, _ := fileSwarm(t)
	e := New(reg)

	res, err := e.SubmitRequest(context.Background(), "generate-excel", "u1", "make me a sheet")
	assert.ErrorIs(t, err, core.ErrNoMatchingSwarm)
	assert.Empty(t, res.ConversationID, "no conversation is created for an unsupported request")
}

func TestSubmitRequest_FullExchange(t *testing.T) {
	reg, _, _, _ := fileSwarm(t)
	obs := &collectObserver{}
	e := New(reg, func(o *Options) { o.Observer = obs })

	res, err := e.SubmitRequest(context.Background(), "file-generation", "u1", "convert report to xlsx")
	require.NoError(t, err)
	assert.Equal(t, "final answer", res.Content)
	assert.False(t, res.Degraded)

	conv, err := e.Conversation(res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, core.StateAwaitingUser, conv.State)

	// Envelopes: user, starter->admin, admin->helper, helper->admin,
	// admin->starter (terminal). The first three agent envelopes carry
	// pending_user_reply=false, the fourth true.
	require.Len(t, conv.Envelopes, 5)
	assert.True(t, conv.Envelopes[0].IsFromUser())
	for _, env := range conv.Envelopes[1:4] {
		assert.True(t, env.IsInternal(), "internal envelope %d should carry pending=false", env.SequenceNo)
	}
	last := conv.Envelopes[4]
	assert.True(t, last.IsTerminal())
	assert.Equal(t, "starter", last.RecipientID, "the terminal envelope is delivered to the Initializer")

	// Exactly one terminal envelope per conversation.
	var terminals int
	for _, env := range conv.Envelopes {
		if env.IsTerminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)

	// sequence_no is strictly increasing.
	for i, env := range conv.Envelopes {
		assert.Equal(t, i, env.SequenceNo)
	}

	// Transition events trace open -> delegating -> awaiting_user.
	events := obs.all()
	require.Len(t, events, 2)
	assert.Equal(t, core.StateOpen, events[0].FromState)
	assert.Equal(t, core.StateDelegating, events[0].ToState)
	assert.Equal(t, core.StateDelegating, events[1].FromState)
	assert.Equal(t, core.StateAwaitingUser, events[1].ToState)
}

func TestSubmitRequest_AgentTimeoutRetriedThenForwarded(t *testing.T) {
	reg, _, admin, _ := fileSwarm(t)

	// helper hangs until the per-hop deadline fires.
	stuck := &testAgent{id: "helper", role: core.RoleConsulted, fn: func(ctx context.Context, _ []core.Fragment, _ string) (core.Response, error) {
		<-ctx.Done()
		return core.Response{}, ctx.Err()
	}}
	reg.RegisterAgent(stuck)

	// admin answers terminally once it sees the failure report.
	sawFailure := false
	admin.fn = func(_ context.Context, slice []core.Fragment, goal string) (core.Response, error) {
		for _, f := range slice {
			if f.Sender == "helper" && !f.Summary {
				sawFailure = true
				return answer("degraded but done"), nil
			}
		}
		if sawFailure {
			return answer("degraded but done"), nil
		}
		return delegate("helper", "need input"), nil
	}

	e := New(reg, func(o *Options) {
		o.HopTimeout = 20 * time.Millisecond
		o.RetryBackoff = time.Millisecond
	})

	res, err := e.SubmitRequest(context.Background(), "file-generation", "u1", "convert it")
	require.NoError(t, err)
	assert.Equal(t, "degraded but done", res.Content)

	assert.Equal(t, 2, stuck.callCount(), "a timed-out hop is retried exactly once")

	conv, err := e.Conversation(res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, core.StateAwaitingUser, conv.State, "a timeout never drops the conversation")

	// The failure was converted to a normal envelope addressed to the
	// Accountable agent.
	var failureSeen bool
	for _, env := range conv.Envelopes {
		if env.SenderID == "helper" && env.RecipientID == "admin" && env.IsInternal() {
			failureSeen = true
			assert.Contains(t, env.Content, "failed")
		}
	}
	assert.True(t, failureSeen)

	terminal, ok := conv.Terminal()
	require.True(t, ok)
	assert.True(t, terminal.IsTerminal())
}

func TestSubmitRequest_DelegationDepthExceeded(t *testing.T) {
	// admin and helper delegate to each other forever.
	starter := &testAgent{id: "starter", role: core.RoleResponsible, fn: func(_ context.Context, _ []core.Fragment, goal string) (core.Response, error) {
		return delegate("admin", goal), nil
	}}
	admin := &testAgent{id: "admin", role: core.RoleAccountable, fn: func(_ context.Context, _ []core.Fragment, goal string) (core.Response, error) {
		return delegate("helper", goal), nil
	}}
	helper := &testAgent{id: "helper", role: core.RoleConsulted, fn: func(_ context.Context, _ []core.Fragment, goal string) (core.Response, error) {
		return delegate("admin", goal), nil
	}}

	reg := router.NewRegistry(nil)
	reg.RegisterAgent(starter)
	reg.RegisterAgent(admin)
	reg.RegisterAgent(helper)
	_, err := reg.RegisterSwarm("loop-swarm", []string{"looping"}, "starter", "admin", "helper")
	require.NoError(t, err)

	e := New(reg, func(o *Options) { o.HopLimit = 10 })

	res, err := e.SubmitRequest(context.Background(), "looping", "u1", "never finish this")
	require.NoError(t, err, "depth exhaustion must not drop the request")
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Content, core.ErrDelegationDepthExceeded.Error())

	conv, err := e.Conversation(res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, core.StateAwaitingUser, conv.State)

	// user envelope + 9 delegation hops + fallback terminal at hop 10.
	require.Len(t, conv.Envelopes, 11)
	terminal := conv.Envelopes[10]
	assert.True(t, terminal.IsTerminal())
	assert.Equal(t, "starter", terminal.RecipientID)
}

func TestReply_SecondTurnContinuesSequence(t *testing.T) {
	reg, _, _, _ := fileSwarm(t)
	e := New(reg)

	res, err := e.SubmitRequest(context.Background(), "file-generation", "u1", "first request")
	require.NoError(t, err)
	firstLen := 5

	res2, err := e.Reply(context.Background(), res.ConversationID, "and another thing")
	require.NoError(t, err)
	assert.Equal(t, res.ConversationID, res2.ConversationID)

	conv, err := e.Conversation(res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, core.StateAwaitingUser, conv.State)
	assert.Greater(t, len(conv.Envelopes), firstLen)
	for i, env := range conv.Envelopes {
		assert.Equal(t, i, env.SequenceNo, "sequence numbers continue across turns")
	}
}

func TestReply_UnknownConversation(t *testing.T) {
	reg, _, _, _ := fileSwarm(t)
	e := New(reg)
	_, err := e.Reply(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, core.ErrUnknownConversation)
}

func TestClose_ArchivesAndRejectsResurrection(t *testing.T) {
	reg, _, _, _ := fileSwarm(t)
	store := archive.NewInMemoryStore()
	e := New(reg, func(o *Options) { o.Archive = store })

	res, err := e.SubmitRequest(context.Background(), "file-generation", "u1", "request")
	require.NoError(t, err)

	require.NoError(t, e.Close(res.ConversationID))
	require.NoError(t, e.Close(res.ConversationID), "close is idempotent")

	rec, err := store.Get(res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, core.StateClosed, rec.Conversation.State)
	assert.NotEmpty(t, rec.Fragments, "the released memory snapshot is archived")

	// A reply after close is archived, never routed.
	_, err = e.Reply(context.Background(), res.ConversationID, "too late")
	assert.ErrorIs(t, err, core.ErrConversationClosed)
	assert.Len(t, store.Late(res.ConversationID), 1)
}

func TestIdleTimeoutClosesConversation(t *testing.T) {
	reg, _, _, _ := fileSwarm(t)
	store := archive.NewInMemoryStore()
	e := New(reg, func(o *Options) {
		o.Archive = store
		o.IdleTimeout = 30 * time.Millisecond
	})

	res, err := e.SubmitRequest(context.Background(), "file-generation", "u1", "request")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		conv, err := e.Conversation(res.ConversationID)
		return err == nil && conv.State == core.StateClosed
	}, time.Second, 10*time.Millisecond)

	_, err = store.Get(res.ConversationID)
	assert.NoError(t, err)
}

func TestConversations_RunIndependently(t *testing.T) {
	reg, _, _, _ := fileSwarm(t)
	e := New(reg)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.SubmitRequest(context.Background(), "file-generation", fmt.Sprintf("u%d", i), "parallel request")
			errs[i] = err
			ids[i] = res.ConversationID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "conversations must not share state")
		seen[ids[i]] = true

		conv, err := e.Conversation(ids[i])
		require.NoError(t, err)
		assert.Equal(t, core.StateAwaitingUser, conv.State)
		require.Len(t, conv.Envelopes, 5)
	}
}
