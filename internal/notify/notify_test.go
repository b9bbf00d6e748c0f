package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/domain"
)

type flakySender struct {
	mu        sync.Mutex
	failures  int
	attempts  int
	delivered chan Message
}

func (s *flakySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.delivered <- msg
	return nil
}

func TestQueue_RetriesUntilDelivered(t *testing.T) {
	sender := &flakySender{failures: 2, delivered: make(chan Message, 1)}
	q := NewQueue(sender, 1, 4, 3)
	q.backoff = time.Millisecond
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Message{To: "a@example.com", Subject: "hi"}))

	select {
	case msg := <-sender.delivered:
		assert.Equal(t, "a@example.com", msg.To)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
	sender.mu.Lock()
	assert.Equal(t, 3, sender.attempts)
	sender.mu.Unlock()
}

func TestQueue_FullQueueRejects(t *testing.T) {
	q := NewQueue(LogSender{}, 1, 1, 0)
	require.NoError(t, q.Enqueue(Message{To: "a"}))
	assert.ErrorIs(t, q.Enqueue(Message{To: "b"}), ErrQueueFull)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(msg Message) error {
	return m.Called(msg).Error(0)
}

type staticLookup map[int64]*domain.EscrowAgreement

func (s staticLookup) GetEscrow(_ context.Context, id int64) (*domain.EscrowAgreement, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, domain.ErrEscrowNotFound(id)
}

func TestNotifier_Publish(t *testing.T) {
	lookup := staticLookup{4: {ID: 4, Borrower: "alice", Lender: "bob"}}
	contacts := map[string]string{"Alice": "alice@example.com", "judge": "judge@example.com"}

	t.Run("DisputeReachesPartiesAndArbiter", func(t *testing.T) {
		q := new(MockEnqueuer)
		q.On("Enqueue", mock.MatchedBy(func(m Message) bool { return m.To == "alice@example.com" })).Return(nil).Once()
		q.On("Enqueue", mock.MatchedBy(func(m Message) bool { return m.To == "judge@example.com" })).Return(nil).Once()

		n := NewNotifier(q, lookup, contacts, "judge")
		n.Publish(context.Background(), domain.EscrowEvent{
			EscrowID: 4, Type: domain.EventDisputeRaised, Actor: "bob",
			Attributes: map[string]string{"reason": "late"}, CreatedAt: time.Now(),
		})
		q.AssertExpectations(t)
	})

	t.Run("IgnoresUninterestingEvents", func(t *testing.T) {
		q := new(MockEnqueuer)
		n := NewNotifier(q, lookup, contacts, "judge")
		n.Publish(context.Background(), domain.EscrowEvent{EscrowID: 4, Type: domain.EventEscrowCreated})
		n.Publish(context.Background(), domain.EscrowEvent{Type: domain.EventFeesWithdrawn})
		q.AssertNotCalled(t, "Enqueue", mock.Anything)
	})

	t.Run("UnknownEscrowIsSkipped", func(t *testing.T) {
		q := new(MockEnqueuer)
		n := NewNotifier(q, lookup, contacts, "judge")
		n.Publish(context.Background(), domain.EscrowEvent{EscrowID: 9, Type: domain.EventEscrowCancelled})
		q.AssertNotCalled(t, "Enqueue", mock.Anything)
	})
}

func TestRender(t *testing.T) {
	subject, body, ok := render(domain.EscrowEvent{
		EscrowID: 2, Type: domain.EventPaymentReleased, Actor: "bob",
		Attributes: map[string]string{"fee": "25", "amount": "975"},
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	})
	require.True(t, ok)
	assert.Equal(t, "Escrow #2 settled", subject)
	assert.Equal(t, "PaymentReleased by bob at 2026-01-02 03:04 UTC.\namount: 975\nfee: 25\n", body)
}

func TestSendGridSender_Build(t *testing.T) {
	s := NewSendGridSender("key", "escrow@example.com", "Escrow")
	m := s.build(Message{To: "alice@example.com", ToName: "alice", Subject: "Escrow #1 funded", Body: "body"})

	assert.Equal(t, "Escrow #1 funded", m.Subject)
	require.Len(t, m.Personalizations, 1)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "alice@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "escrow@example.com", m.From.Address)
}

func TestNewSender(t *testing.T) {
	assert.IsType(t, LogSender{}, NewSender(config.NotifyConfig{Provider: "log"}))
	assert.IsType(t, &SendGridSender{}, NewSender(config.NotifyConfig{Provider: "sendgrid", SendGridAPIKey: "k"}))
}
