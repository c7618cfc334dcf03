package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"outpost/internal/domain"
	"outpost/internal/domain/models"
	domainllm "outpost/internal/domain/services/llm"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeConvRepo struct {
	conv    *models.Conversation
	agent   *models.Agent
	touched []time.Time
}

func (f *fakeConvRepo) Create(ctx context.Context, conv *models.Conversation) error {
	return errors.New("not implemented")
}

func (f *fakeConvRepo) GetWithAgent(ctx context.Context, conversationID string) (*models.Conversation, *models.Agent, error) {
	if f.conv == nil || f.conv.ID != conversationID {
		return nil, nil, domain.ErrNotFound
	}
	return f.conv, f.agent, nil
}

func (f *fakeConvRepo) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	return nil, nil
}

func (f *fakeConvRepo) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	f.touched = append(f.touched, at)
	return nil
}

func (f *fakeConvRepo) Close(ctx context.Context, conversationID, userID string) error {
	return nil
}

type fakeMsgRepo struct {
	history  []models.Message
	inserted []models.Message
	events   *[]string

	failUserInsert      bool
	failAssistantInsert bool
}

func (f *fakeMsgRepo) Insert(ctx context.Context, msg *models.Message) error {
	if msg.Role == models.RoleUser && f.failUserInsert {
		return errors.New("insert failed")
	}
	if msg.Role == models.RoleAssistant && f.failAssistantInsert {
		return errors.New("insert failed")
	}
	msg.ID = "msg-" + msg.Role
	msg.CreatedAt = time.Now()
	f.inserted = append(f.inserted, *msg)
	if f.events != nil {
		*f.events = append(*f.events, "insert:"+msg.Role)
	}
	return nil
}

func (f *fakeMsgRepo) ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if len(f.history) > limit {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

// fakeProvider plays back a scripted stream.
type fakeProvider struct {
	chunks  []string
	err     error // delivered after chunks, in-band
	openErr error // delivered from StreamResponse itself
	events  *[]string
}

func (f *fakeProvider) Name() string                    { return "fake" }
func (f *fakeProvider) SupportsModel(model string) bool { return true }

func (f *fakeProvider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if f.events != nil {
		*f.events = append(*f.events, "stream:open")
	}
	if f.openErr != nil {
		return nil, f.openErr
	}

	ch := make(chan domainllm.StreamEvent, len(f.chunks)+2)
	go func() {
		defer close(ch)
		for i := range f.chunks {
			select {
			case <-ctx.Done():
				ch <- domainllm.StreamEvent{Error: ctx.Err()}
				return
			case ch <- domainllm.StreamEvent{TextDelta: &f.chunks[i]}:
			}
		}
		if f.err != nil {
			ch <- domainllm.StreamEvent{Error: f.err}
			return
		}
		ch <- domainllm.StreamEvent{Metadata: &domainllm.StreamMetadata{
			Model:        req.Model,
			OutputTokens: len(f.chunks),
		}}
	}()
	return ch, nil
}

// fakeWriter records frames and can simulate a dropped client.
type fakeWriter struct {
	texts     []string
	errorMsgs []string
	doneCount int

	failAfter int // fail WriteText after this many successful writes; -1 disables
}

func (f *fakeWriter) WriteText(text string) error {
	if f.failAfter >= 0 && len(f.texts) >= f.failAfter {
		return io.ErrClosedPipe
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeWriter) WriteError(message string) error {
	f.errorMsgs = append(f.errorMsgs, message)
	return nil
}

func (f *fakeWriter) WriteDone() error {
	f.doneCount++
	return nil
}

func newFakeWriter() *fakeWriter { return &fakeWriter{failAfter: -1} }

// ============================================================================
// FIXTURES
// ============================================================================

const (
	testUserID  = "11111111-1111-1111-1111-111111111111"
	otherUserID = "22222222-2222-2222-2222-222222222222"
	testConvID  = "33333333-3333-3333-3333-333333333333"
)

func testAgent() *models.Agent {
	return &models.Agent{
		ID:          "44444444-4444-4444-4444-444444444444",
		Name:        "DevBot",
		Role:        "dev_efficiency_analyst",
		Description: "Monitors engineering throughput.",
		IsActive:    true,
	}
}

func testConversation() *models.Conversation {
	return &models.Conversation{
		ID:      testConvID,
		UserID:  testUserID,
		AgentID: "44444444-4444-4444-4444-444444444444",
		Status:  models.ConversationActive,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(convRepo *fakeConvRepo, msgRepo *fakeMsgRepo, provider *fakeProvider) *Service {
	return NewService(convRepo, msgRepo, provider, "test-model", testLogger())
}

func assistantTurns(msgRepo *fakeMsgRepo) []models.Message {
	var out []models.Message
	for _, m := range msgRepo.inserted {
		if m.Role == models.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

// ============================================================================
// TESTS
// ============================================================================

func TestRelay_HappyPath(t *testing.T) {
	var events []string
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{events: &events}
	provider := &fakeProvider{chunks: []string{"All", " systems", " nominal."}, events: &events}
	svc := newTestService(convRepo, msgRepo, provider)

	sess, err := svc.Open(context.Background(), testUserID, testConvID, "Status check?")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	w := newFakeWriter()
	sess.Relay(context.Background(), w)

	// Chunks forwarded verbatim, then the terminal marker.
	if got := strings.Join(w.texts, ""); got != "All systems nominal." {
		t.Errorf("forwarded text = %q, want %q", got, "All systems nominal.")
	}
	if w.doneCount != 1 {
		t.Errorf("done markers = %d, want 1", w.doneCount)
	}
	if len(w.errorMsgs) != 0 {
		t.Errorf("unexpected error frames: %v", w.errorMsgs)
	}

	// User turn durable before the upstream stream was opened.
	wantOrder := []string{"insert:user", "stream:open", "insert:assistant"}
	if len(events) != len(wantOrder) {
		t.Fatalf("event order = %v, want %v", events, wantOrder)
	}
	for i := range wantOrder {
		if events[i] != wantOrder[i] {
			t.Fatalf("event order = %v, want %v", events, wantOrder)
		}
	}

	// Assistant turn persisted exactly once with the full concatenation.
	assistant := assistantTurns(msgRepo)
	if len(assistant) != 1 {
		t.Fatalf("assistant turns persisted = %d, want 1", len(assistant))
	}
	if assistant[0].Content != "All systems nominal." {
		t.Errorf("persisted content = %q, want %q", assistant[0].Content, "All systems nominal.")
	}

	if len(convRepo.touched) != 1 {
		t.Errorf("last_message_at updates = %d, want 1", len(convRepo.touched))
	}
}

func TestRelay_UpstreamErrorMidStream(t *testing.T) {
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{}
	provider := &fakeProvider{chunks: []string{"All"}, err: errors.New("upstream reset")}
	svc := newTestService(convRepo, msgRepo, provider)

	sess, err := svc.Open(context.Background(), testUserID, testConvID, "Status check?")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	w := newFakeWriter()
	sess.Relay(context.Background(), w)

	// Partial text persisted, error reported in-band, no terminal marker.
	assistant := assistantTurns(msgRepo)
	if len(assistant) != 1 {
		t.Fatalf("assistant turns persisted = %d, want 1", len(assistant))
	}
	if assistant[0].Content != "All" {
		t.Errorf("persisted content = %q, want %q", assistant[0].Content, "All")
	}
	if len(w.errorMsgs) != 1 {
		t.Errorf("error frames = %d, want 1", len(w.errorMsgs))
	}
	if w.doneCount != 0 {
		t.Errorf("done markers = %d, want 0", w.doneCount)
	}
}

func TestRelay_UpstreamOpenFails(t *testing.T) {
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{}
	provider := &fakeProvider{openErr: errors.New("connect refused")}
	svc := newTestService(convRepo, msgRepo, provider)

	sess, err := svc.Open(context.Background(), testUserID, testConvID, "Status check?")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	w := newFakeWriter()
	sess.Relay(context.Background(), w)

	// The user turn is already durable, so the assistant turn is recorded
	// too, as empty, and the failure is in-band.
	assistant := assistantTurns(msgRepo)
	if len(assistant) != 1 {
		t.Fatalf("assistant turns persisted = %d, want 1", len(assistant))
	}
	if assistant[0].Content != "" {
		t.Errorf("persisted content = %q, want empty", assistant[0].Content)
	}
	if len(w.errorMsgs) != 1 || w.doneCount != 0 {
		t.Errorf("frames: errors=%d done=%d, want 1 and 0", len(w.errorMsgs), w.doneCount)
	}
}

func TestRelay_ClientDisconnect(t *testing.T) {
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{}
	provider := &fakeProvider{chunks: []string{"one ", "two ", "three ", "four"}}
	svc := newTestService(convRepo, msgRepo, provider)

	sess, err := svc.Open(context.Background(), testUserID, testConvID, "Count up")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	w := newFakeWriter()
	w.failAfter = 2 // client drops after two chunks
	sess.Relay(context.Background(), w)

	// Whatever accumulated, including the chunk the client never got, is
	// persisted; no terminal marker, no error frame.
	assistant := assistantTurns(msgRepo)
	if len(assistant) != 1 {
		t.Fatalf("assistant turns persisted = %d, want 1", len(assistant))
	}
	if got := assistant[0].Content; got != "one two three " {
		t.Errorf("persisted content = %q, want %q", got, "one two three ")
	}
	if w.doneCount != 0 || len(w.errorMsgs) != 0 {
		t.Errorf("frames after disconnect: done=%d errors=%d, want none", w.doneCount, len(w.errorMsgs))
	}
}

func TestRelay_FinalizeFailureSuppressesDone(t *testing.T) {
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{failAssistantInsert: true}
	provider := &fakeProvider{chunks: []string{"hello"}}
	svc := newTestService(convRepo, msgRepo, provider)

	sess, err := svc.Open(context.Background(), testUserID, testConvID, "hi")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	w := newFakeWriter()
	sess.Relay(context.Background(), w)

	// The stream relayed fine, but the turn is not durable, so the client
	// must not see a terminal marker.
	if w.doneCount != 0 {
		t.Errorf("done markers = %d, want 0 when finalize fails", w.doneCount)
	}
	if got := strings.Join(w.texts, ""); got != "hello" {
		t.Errorf("forwarded text = %q, want %q", got, "hello")
	}
}

func TestOpen_ForbiddenIsNotNotFound(t *testing.T) {
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{}
	svc := newTestService(convRepo, msgRepo, &fakeProvider{})

	_, err := svc.Open(context.Background(), otherUserID, testConvID, "hi")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatal("foreign conversation must not report NotFound")
	}
	if len(msgRepo.inserted) != 0 {
		t.Errorf("turns persisted on forbidden open: %d", len(msgRepo.inserted))
	}
}

func TestOpen_MissingConversation(t *testing.T) {
	convRepo := &fakeConvRepo{} // no conversation at all
	msgRepo := &fakeMsgRepo{}
	svc := newTestService(convRepo, msgRepo, &fakeProvider{})

	_, err := svc.Open(context.Background(), testUserID, testConvID, "hi")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpen_ClosedConversation(t *testing.T) {
	conv := testConversation()
	conv.Status = models.ConversationClosed
	convRepo := &fakeConvRepo{conv: conv, agent: testAgent()}
	msgRepo := &fakeMsgRepo{}
	svc := newTestService(convRepo, msgRepo, &fakeProvider{})

	_, err := svc.Open(context.Background(), testUserID, testConvID, "hi")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpen_UserInsertFailureAbortsBeforeUpstream(t *testing.T) {
	var events []string
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{events: &events, failUserInsert: true}
	provider := &fakeProvider{chunks: []string{"never"}, events: &events}
	svc := newTestService(convRepo, msgRepo, provider)

	_, err := svc.Open(context.Background(), testUserID, testConvID, "hi")
	if err == nil {
		t.Fatal("Open succeeded despite user-turn persist failure")
	}
	for _, ev := range events {
		if ev == "stream:open" {
			t.Fatal("upstream stream opened despite user-turn persist failure")
		}
	}
}

func TestOpen_CorruptStoredRole(t *testing.T) {
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{history: []models.Message{
		{ID: "m1", ConversationID: testConvID, Role: "system", Content: "bad"},
	}}
	svc := newTestService(convRepo, msgRepo, &fakeProvider{})

	_, err := svc.Open(context.Background(), testUserID, testConvID, "hi")
	if !errors.Is(err, domain.ErrCorruptTurn) {
		t.Fatalf("err = %v, want ErrCorruptTurn", err)
	}
}

func TestRelay_ContextWindowSentUpstream(t *testing.T) {
	history := []models.Message{
		{ID: "m1", Role: models.RoleUser, Content: "first"},
		{ID: "m2", Role: models.RoleAssistant, Content: "second"},
	}
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{history: history}
	provider := &fakeProvider{chunks: []string{"ok"}}
	svc := newTestService(convRepo, msgRepo, provider)

	sess, err := svc.Open(context.Background(), testUserID, testConvID, "third")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	if len(sess.messages) != 3 {
		t.Fatalf("prompt messages = %d, want 3", len(sess.messages))
	}
	last := sess.messages[len(sess.messages)-1]
	if last.Role != models.RoleUser || last.Content != "third" {
		t.Errorf("last prompt message = %+v, want the new user turn", last)
	}
}

func TestOpen_SerializesPerConversation(t *testing.T) {
	convRepo := &fakeConvRepo{conv: testConversation(), agent: testAgent()}
	msgRepo := &fakeMsgRepo{}
	svc := newTestService(convRepo, msgRepo, &fakeProvider{})

	sess, err := svc.Open(context.Background(), testUserID, testConvID, "first")
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	// A second open on the same conversation must wait for the first.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := svc.Open(ctx, testUserID, testConvID, "second"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Open err = %v, want DeadlineExceeded while lock is held", err)
	}

	sess.Close()

	sess2, err := svc.Open(context.Background(), testUserID, testConvID, "third")
	if err != nil {
		t.Fatalf("Open after release failed: %v", err)
	}
	sess2.Close()
}
