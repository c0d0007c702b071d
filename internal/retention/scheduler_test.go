package retention_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	. "guardian/internal/retention"
	"guardian/internal/retention/config"
	"guardian/internal/retention/store"
	"guardian/internal/safety"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

const testChild = "7e6f0c3a-2b44-4bfa-9a01-55d7a9a3c222"

type record struct {
	child     domain.ChildID
	category  domain.DataCategory
	createdAt time.Time
}

// fakeData backs both discovery and purging so tests can watch records
// disappear.
type fakeData struct {
	records  []record
	purgeErr error
}

func (d *fakeData) ListAged(_ context.Context, category domain.DataCategory, olderThan time.Time) ([]domain.ChildID, error) {
	seen := map[domain.ChildID]bool{}
	var out []domain.ChildID
	for _, r := range d.records {
		if r.category == category && r.createdAt.Before(olderThan) && !seen[r.child] {
			seen[r.child] = true
			out = append(out, r.child)
		}
	}
	return out, nil
}

func (d *fakeData) Purge(_ context.Context, childID domain.ChildID, category domain.DataCategory, olderThan time.Time) (int, error) {
	if d.purgeErr != nil {
		return 0, d.purgeErr
	}
	var kept []record
	purged := 0
	for _, r := range d.records {
		if r.child == childID && r.category == category && r.createdAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	d.records = kept
	return purged, nil
}

func (d *fakeData) count(childID domain.ChildID, category domain.DataCategory) int {
	n := 0
	for _, r := range d.records {
		if r.child == childID && r.category == category {
			n++
		}
	}
	return n
}

type fakeHolds struct {
	held map[string]bool
}

func (h *fakeHolds) HasHold(_ context.Context, childID domain.ChildID, category domain.DataCategory) (bool, string, error) {
	if h.held[childID.String()+"/"+category.String()] {
		return true, "active parental consent", nil
	}
	return false, "", nil
}

type capturePublisher struct {
	events []*safety.Event
}

func (p *capturePublisher) Publish(_ context.Context, event *safety.Event) error {
	cp := *event
	p.events = append(p.events, &cp)
	return nil
}

type SchedulerSuite struct {
	suite.Suite
	cfg    config.Config
	store  *store.MemoryStore
	data   *fakeData
	holds  *fakeHolds
	bus    *capturePublisher
	now    time.Time
	sweeps *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.cfg = config.DefaultConfig()
	s.cfg.RetentionDays[domain.DataConversations] = 90
	s.store = store.NewMemoryStore()
	s.data = &fakeData{}
	s.holds = &fakeHolds{held: map[string]bool{}}
	s.bus = &capturePublisher{}
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.sweeps = s.newScheduler()
}

func (s *SchedulerSuite) newScheduler() *Scheduler {
	sc, err := New(s.store, s.data, s.cfg,
		WithCandidateSource(s.data),
		WithHoldChecker(s.holds),
		WithEventPublisher(s.bus),
		WithClockForTest(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	return sc
}

func (s *SchedulerSuite) addRecord(category domain.DataCategory, age time.Duration) {
	s.data.records = append(s.data.records, record{
		child:     domain.ChildID(testChild),
		category:  category,
		createdAt: s.now.Add(-age),
	})
}

func (s *SchedulerSuite) openTickets() []*Ticket {
	tickets, err := s.store.ListOpen(context.Background())
	s.Require().NoError(err)
	return tickets
}

func (s *SchedulerSuite) childTickets() []*Ticket {
	tickets, err := s.store.ListByChild(context.Background(), domain.ChildID(testChild))
	s.Require().NoError(err)
	return tickets
}

func (s *SchedulerSuite) TestConstructorValidation() {
	s.Run("nil ticket store", func() {
		_, err := New(nil, s.data, s.cfg)
		s.Require().Error(err)
	})

	s.Run("invalid policy", func() {
		bad := s.cfg
		bad.RetentionDays = map[domain.DataCategory]int{domain.DataConversations: 30}
		_, err := New(s.store, s.data, bad)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConfiguration))
	})
}

func (s *SchedulerSuite) TestSweepExecutesExpiredRecord() {
	s.addRecord(domain.DataConversations, 91*24*time.Hour)

	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))

	tickets := s.childTickets()
	s.Require().Len(tickets, 1)
	s.Equal(StatusExecuted, tickets[0].Status)
	s.Equal(OriginSweep, tickets[0].Origin)
	s.Equal(1, tickets[0].PurgedRecords)
	s.Require().NotNil(tickets[0].ExecutedAt)
	s.Zero(s.data.count(domain.ChildID(testChild), domain.DataConversations))
}

func (s *SchedulerSuite) TestSweepKeepsFreshData() {
	s.addRecord(domain.DataConversations, 10*24*time.Hour)

	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))

	s.Empty(s.childTickets())
	s.Equal(1, s.data.count(domain.ChildID(testChild), domain.DataConversations))
}

func (s *SchedulerSuite) TestSweepIsIdempotent() {
	s.addRecord(domain.DataConversations, 91*24*time.Hour)

	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))
	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))

	s.Len(s.childTickets(), 1)
	s.Empty(s.bus.events)
}

func (s *SchedulerSuite) TestHoldBlocksThenReleases() {
	s.addRecord(domain.DataConversations, 91*24*time.Hour)
	s.holds.held[testChild+"/"+domain.DataConversations.String()] = true

	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))

	tickets := s.childTickets()
	s.Require().Len(tickets, 1)
	s.Equal(StatusBlocked, tickets[0].Status)
	s.NotEmpty(tickets[0].BlockedReason)
	s.Equal(1, s.data.count(domain.ChildID(testChild), domain.DataConversations))

	s.Run("released hold executes on next sweep", func() {
		s.holds.held = map[string]bool{}
		s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now.Add(time.Hour)))

		tickets := s.childTickets()
		s.Require().Len(tickets, 1)
		s.Equal(StatusExecuted, tickets[0].Status)
		s.Zero(s.data.count(domain.ChildID(testChild), domain.DataConversations))
	})
}

func (s *SchedulerSuite) TestOverdueTicketAlertsOnce() {
	s.addRecord(domain.DataConversations, 91*24*time.Hour)
	s.data.purgeErr = errors.New("datastore unavailable")

	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))
	s.Empty(s.bus.events, "not overdue yet")

	late := s.now.Add(25 * time.Hour)
	s.Require().NoError(s.sweeps.Sweep(context.Background(), late))
	s.Require().Len(s.bus.events, 1)
	s.Equal(safety.EventRetentionViolation, s.bus.events[0].Type)
	s.Equal(safety.SeverityHigh, s.bus.events[0].Severity)

	s.Run("no duplicate alert on later sweeps", func() {
		s.Require().NoError(s.sweeps.Sweep(context.Background(), late.Add(time.Hour)))
		s.Len(s.bus.events, 1)
	})

	s.Run("recovered purge still executes", func() {
		s.data.purgeErr = nil
		s.Require().NoError(s.sweeps.Sweep(context.Background(), late.Add(2*time.Hour)))

		tickets := s.childTickets()
		s.Require().Len(tickets, 1)
		s.Equal(StatusExecuted, tickets[0].Status)
	})
}

func (s *SchedulerSuite) TestBlockedOverdueStillAlerts() {
	s.addRecord(domain.DataConversations, 91*24*time.Hour)
	s.holds.held[testChild+"/"+domain.DataConversations.String()] = true

	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))
	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now.Add(25*time.Hour)))

	s.Require().Len(s.bus.events, 1)
	s.Equal(safety.EventRetentionViolation, s.bus.events[0].Type)
}

func (s *SchedulerSuite) TestOpenForRevocation() {
	s.addRecord(domain.DataVoiceRecordings, time.Hour)

	err := s.sweeps.OpenForRevocation(context.Background(), domain.ChildID(testChild), domain.ScopeVoiceRecording, s.now)
	s.Require().NoError(err)

	tickets := s.childTickets()
	s.Require().Len(tickets, 1)
	s.Equal(OriginRevocation, tickets[0].Origin)
	s.Equal(s.now.Add(7*24*time.Hour), tickets[0].EligibleAt)

	s.Run("not eligible during grace period", func() {
		s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now.Add(24*time.Hour)))
		s.Equal(1, s.data.count(domain.ChildID(testChild), domain.DataVoiceRecordings))
	})

	s.Run("purges everything after grace", func() {
		s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now.Add(8*24*time.Hour)))
		s.Zero(s.data.count(domain.ChildID(testChild), domain.DataVoiceRecordings))

		tickets := s.childTickets()
		s.Require().Len(tickets, 1)
		s.Equal(StatusExecuted, tickets[0].Status)
	})
}

func (s *SchedulerSuite) TestRevocationTightensExistingTicket() {
	// A sweep ticket opened later must not delay the revocation date. The
	// hold keeps the sweep ticket open so the revocation lands on it.
	s.addRecord(domain.DataVoiceRecordings, 8*24*time.Hour)
	s.holds.held[testChild+"/"+domain.DataVoiceRecordings.String()] = true
	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now))
	s.Require().Len(s.openTickets(), 1)

	err := s.sweeps.OpenForRevocation(context.Background(), domain.ChildID(testChild), domain.ScopeVoiceRecording, s.now.Add(-8*24*time.Hour))
	s.Require().NoError(err)

	tickets := s.openTickets()
	s.Require().Len(tickets, 1)
	s.Equal(s.now.Add(-24*time.Hour), tickets[0].EligibleAt)
	s.Equal(OriginRevocation, tickets[0].Origin)
}

func (s *SchedulerSuite) TestRequestDeletion() {
	s.Run("unknown category rejected", func() {
		_, err := s.sweeps.RequestDeletion(context.Background(), domain.ChildID(testChild), []domain.DataCategory{"photos"})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("defaults to every category", func() {
		receipt, err := s.sweeps.RequestDeletion(context.Background(), domain.ChildID(testChild), nil)
		s.Require().NoError(err)
		s.Len(receipt.Tickets, len(domain.AllDataCategories()))
		s.Len(receipt.ConfirmationCode, 8)
		s.Equal(s.now.Add(7*24*time.Hour), receipt.ScheduledAt)
		for _, ticket := range receipt.Tickets {
			s.Equal(OriginParentRequest, ticket.Origin)
			s.Equal(receipt.ConfirmationCode, ticket.ConfirmationCode)
		}
	})
}

func (s *SchedulerSuite) TestLegalCategoriesNeverPurgedEarly() {
	s.addRecord(domain.DataSafetyLogs, 30*24*time.Hour)

	_, err := s.sweeps.RequestDeletion(context.Background(), domain.ChildID(testChild), []domain.DataCategory{domain.DataSafetyLogs})
	s.Require().NoError(err)

	s.Require().NoError(s.sweeps.Sweep(context.Background(), s.now.Add(8*24*time.Hour)))

	// Safety logs stay until their legal window even on explicit request.
	s.Equal(1, s.data.count(domain.ChildID(testChild), domain.DataSafetyLogs))
}
