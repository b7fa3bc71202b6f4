// Package usecasetest provides in-memory doubles for the use case ports.
package usecasetest

import (
	"context"
	"sync"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/usecase"
)

// Call is one recorded remote call.
type Call struct {
	Endpoint string
	Args     []string
}

// RemoteAPI answers every remote call from a per-endpoint script.
// Endpoints without a scripted reply answer success with code 200.
type RemoteAPI struct {
	mu      sync.Mutex
	replies map[string][]*domain.APIResult
	errs    map[string]error
	calls   []Call
}

func NewRemoteAPI() *RemoteAPI {
	return &RemoteAPI{
		replies: make(map[string][]*domain.APIResult),
		errs:    make(map[string]error),
	}
}

// Reply queues a result for the endpoint.
func (f *RemoteAPI) Reply(endpoint string, result *domain.APIResult) *RemoteAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[endpoint] = append(f.replies[endpoint], result)
	return f
}

// Fail makes every call to the endpoint return err.
func (f *RemoteAPI) Fail(endpoint string, err error) *RemoteAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[endpoint] = err
	return f
}

// Calls returns the recorded calls in order.
func (f *RemoteAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Endpoints returns the endpoint names called, in order.
func (f *RemoteAPI) Endpoints() []string {
	calls := f.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Endpoint)
	}
	return out
}

func (f *RemoteAPI) CreateAccount(_ context.Context, identity domain.Identity) (*domain.APIResult, error) {
	return f.answer("user/create", identity.Username, identity.Password, identity.UCode)
}

func (f *RemoteAPI) Login(_ context.Context, username, password string) (*domain.APIResult, error) {
	return f.answer("user/login", username, password)
}

func (f *RemoteAPI) UpdateUsername(_ context.Context, username, newUsername string) (*domain.APIResult, error) {
	return f.answer("user/update-username", username, newUsername)
}

func (f *RemoteAPI) UpdateAPIKey(_ context.Context, username, key string) (*domain.APIResult, error) {
	return f.answer("user/update-api-key", username, key)
}

func (f *RemoteAPI) SendChat(_ context.Context, username, prompt string) (*domain.APIResult, error) {
	return f.answer("chat/send", username, prompt)
}

func (f *RemoteAPI) ChatHistory(_ context.Context, username string) (*domain.APIResult, error) {
	return f.answer("chat/history", username)
}

func (f *RemoteAPI) Connect(_ context.Context, email, message string) (*domain.APIResult, error) {
	return f.answer("user/connect", email, message)
}

func (f *RemoteAPI) answer(endpoint string, args ...string) (*domain.APIResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Endpoint: endpoint, Args: args})
	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	queue := f.replies[endpoint]
	if len(queue) == 0 {
		return &domain.APIResult{Success: true, Code: 200, Message: "ok"}, nil
	}
	f.replies[endpoint] = queue[1:]
	return queue[0], nil
}

// AuditSink keeps recorded events in memory.
type AuditSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *AuditSink) Record(_ context.Context, event domain.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Kinds returns the recorded event kinds in order.
func (s *AuditSink) Kinds() []domain.AuditKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditKind, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Kind)
	}
	return out
}

// Events returns a copy of the recorded events.
func (s *AuditSink) Events() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

var (
	_ usecase.AccountAPI = (*RemoteAPI)(nil)
	_ usecase.ChatAPI    = (*RemoteAPI)(nil)
	_ usecase.ContactAPI = (*RemoteAPI)(nil)
	_ usecase.AuditSink  = (*AuditSink)(nil)
)
