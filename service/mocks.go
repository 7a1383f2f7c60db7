package service

import (
	"context"
	"sync"
	"time"

	"bubbler/events"
	"bubbler/models"

	"github.com/stretchr/testify/mock"
)

// MockSnapshotStore is a mock implementation of SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Save(ctx context.Context, snapshot *models.LedgerSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotStore) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerSnapshot), args.Error(1)
}

// MockHistoryRecorder is a mock implementation of HistoryRecorder
type MockHistoryRecorder struct {
	mock.Mock
}

func (m *MockHistoryRecorder) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockHistoryRecorder) GetByIdentity(ctx context.Context, identity string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, identity, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockHistoryRecorder) GetByDateRange(ctx context.Context, identity string, from, to time.Time) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, identity, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// RecordingAnnouncer captures announcements for assertion in tests.
type RecordingAnnouncer struct {
	mu            sync.Mutex
	Announcements []Announcement
}

func (a *RecordingAnnouncer) Announce(ctx context.Context, announcement Announcement) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Announcements = append(a.Announcements, announcement)
}

func (a *RecordingAnnouncer) Titles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	titles := make([]string, len(a.Announcements))
	for i, announcement := range a.Announcements {
		titles[i] = announcement.Title
	}
	return titles
}

// RecordingPublisher captures published events for assertion in tests.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

func (p *RecordingPublisher) ByType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []events.Event
	for _, event := range p.Events {
		if event.Type() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
