package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/repository"
	"github.com/Nexus6Mx/see/internal/sender"
)

// fakeQueueRepo is an in-memory queue with the same eligibility and
// transition rules as the GORM implementation.
type fakeQueueRepo struct {
	nextID     int64
	records    map[int64]*domain.Notification
	enqueueErr error
	dequeueErr error
	statsErr   error
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{nextID: 1, records: map[int64]*domain.Notification{}}
}

func (f *fakeQueueRepo) Enqueue(ctx context.Context, n *domain.Notification) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}

	n.State = domain.StatePending
	n.Priority = n.Priority.Normalize()
	if n.MaxAttempts < 1 {
		n.MaxAttempts = domain.DefaultMaxAttempts
	}
	n.Attempts = 0
	if err := n.Validate(); err != nil {
		return err
	}

	n.ID = f.nextID
	f.nextID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	stored := *n
	f.records[n.ID] = &stored
	return nil
}

func (f *fakeQueueRepo) DequeueBatch(ctx context.Context, limit int) ([]domain.Notification, error) {
	if f.dequeueErr != nil {
		return nil, f.dequeueErr
	}
	if limit <= 0 {
		return nil, nil
	}

	var eligible []domain.Notification
	for _, r := range f.records {
		if r.Eligible() {
			eligible = append(eligible, *r)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority < eligible[j].Priority
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (f *fakeQueueRepo) MarkSent(ctx context.Context, id int64) error {
	r, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.State != domain.StatePending {
		return nil
	}

	now := time.Now().UTC()
	r.State = domain.StateSent
	r.Attempts++
	r.SentAt = &now
	r.LastAttemptAt = &now
	return nil
}

func (f *fakeQueueRepo) MarkFailed(ctx context.Context, id int64, sendErr string) error {
	r, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.State != domain.StatePending {
		return domain.ErrConflict
	}

	now := time.Now().UTC()
	r.Attempts++
	r.LastError = &sendErr
	r.LastAttemptAt = &now
	if r.Attempts >= r.MaxAttempts {
		r.State = domain.StateFailed
	}
	return nil
}

func (f *fakeQueueRepo) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeQueueRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	var out []domain.Notification
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeQueueRepo) Stats(ctx context.Context, window time.Duration) (*domain.QueueStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}

	stats := &domain.QueueStats{}
	for _, r := range f.records {
		stats.Total++
		switch r.State {
		case domain.StatePending:
			stats.Pending++
		case domain.StateSent:
			stats.Sent++
		case domain.StateFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

type fakeAttemptRepo struct {
	created   []domain.DeliveryAttempt
	createErr error
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *a)
	return nil
}

func (f *fakeAttemptRepo) GetByNotificationID(ctx context.Context, notificationID int64) ([]domain.DeliveryAttempt, error) {
	var out []domain.DeliveryAttempt
	for _, a := range f.created {
		if a.NotificationID == notificationID {
			out = append(out, a)
		}
	}
	return out, nil
}

type dispatchCall struct {
	Channel   domain.Channel
	Recipient string
	Body      string
	Extra     sender.Extra
}

// fakeDispatcher fails sends while failures > 0, then succeeds.
type fakeDispatcher struct {
	calls    []dispatchCall
	failures int
	failWith *sender.SendError
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, channel domain.Channel, recipient string, body string, extra sender.Extra) (*sender.Response, error) {
	f.calls = append(f.calls, dispatchCall{Channel: channel, Recipient: recipient, Body: body, Extra: extra})

	if f.failures > 0 {
		f.failures--
		if f.failWith != nil {
			return nil, f.failWith
		}
		return nil, &sender.SendError{Kind: sender.KindTransport, Message: "connection refused"}
	}
	return &sender.Response{StatusCode: 200, Body: `{"ok":true}`}, nil
}

type fakeClients struct {
	record *domain.ClientRecord
	err    error
}

func (f *fakeClients) GetClientByOrder(ctx context.Context, orderNumber string) (*domain.ClientRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeGallery struct {
	url string
	err error
}

func (f *fakeGallery) IssueURL(ctx context.Context, orderNumber, createdBy string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.url != "" {
		return f.url, nil
	}
	return fmt.Sprintf("https://see.example.com/galeria?t=tok-%s", orderNumber), nil
}
