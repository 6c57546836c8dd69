package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/metrics"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/correlation"
)

const (
	cleanupInterval = time.Minute
	cleanupTimeout  = 30 * time.Second
	archiveTimeout  = 5 * time.Second
	exportTimeout   = 10 * time.Second
)

// Service is the only component that talks to more than one port.
type Service struct {
	polls   domain.PollRepository
	archive domain.ResultsArchive
	events  domain.EventPublisher
	metrics *metrics.PollMetrics
	clock   clockwork.Clock

	exportGroup singleflight.Group

	cleanupStopCh chan struct{}
	stopOnce      sync.Once
	cleanupWg     sync.WaitGroup
}

// NewService creates the application service and starts the cleanup timer.
// archive and events may be nil to disable archiving and realtime events.
func NewService(polls domain.PollRepository, archive domain.ResultsArchive, events domain.EventPublisher, m *metrics.PollMetrics, clock clockwork.Clock) *Service {
	s := &Service{
		polls:         polls,
		archive:       archive,
		events:        events,
		metrics:       m,
		clock:         clock,
		cleanupStopCh: make(chan struct{}),
	}

	s.startCleanupTimer()
	return s
}

// CreatePoll opens draft for responses. Results, voters and status coming
// from the client are discarded.
func (s *Service) CreatePoll(ctx context.Context, draft *domain.Poll) (*domain.Poll, error) {
	if err := domain.ValidateDraft(draft); err != nil {
		return nil, err
	}

	responses := make([]domain.Response, len(draft.Responses))
	for i, r := range draft.Responses {
		responses[i] = domain.NewResponse(r.Text, 0)
	}
	p := domain.NewPoll(draft.SessionID, domain.StatusPending, draft.Anonymous, draft.Question, responses, 0)

	if err := s.polls.Create(ctx, p); err != nil {
		return nil, err
	}
	s.metrics.Created.Inc()

	slog.InfoContext(ctx, "Poll opened", "session_id", p.SessionID, "responses", len(p.Responses), "anonymous", p.Anonymous)
	s.publish(ctx, p.SessionID, domain.PollEvent{Type: domain.EventPollCreated, Poll: p})
	return p, nil
}

func (s *Service) GetPoll(ctx context.Context, sessionID string) (*domain.Poll, error) {
	return s.polls.Get(ctx, sessionID)
}

// GetView returns the poll of a session as participant sees it.
func (s *Service) GetView(ctx context.Context, sessionID, participant string) (*domain.PollView, error) {
	p, err := s.polls.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := ViewFor(p, participant)
	return &view, nil
}

// ViewFor marks a pending poll as responded for a participant who already
// answered it and reports the option they chose. Anonymous polls never
// reveal the choice.
func ViewFor(p *domain.Poll, participant string) domain.PollView {
	view := domain.PollView{Poll: p.Clone(), ChosenIndex: domain.NoChoice}
	if participant == "" || !p.Participants.Contains(participant) {
		return view
	}

	if p.Status == domain.StatusPending {
		view.Poll.Status = domain.StatusResponded
	}
	if !p.Anonymous {
		view.ChosenIndex = p.ResponseIndexOf(participant)
	}
	return view
}

// RespondPoll records the answer of participant. Every participant answers
// at most once, anonymous polls included.
func (s *Service) RespondPoll(ctx context.Context, sessionID, participant string, responseIndex int) (*domain.Poll, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return nil, &domain.FieldError{Field: "participant", Message: "Please, provide the participant"}
	}

	start := s.clock.Now()
	p, err := s.polls.Update(ctx, sessionID, func(p *domain.Poll) error {
		if p.Status != domain.StatusPending {
			return fmt.Errorf("session %s is %s: %w", sessionID, p.Status, domain.ErrPollNotPending)
		}
		if p.Participants.Contains(participant) {
			return fmt.Errorf("%q: %w", participant, domain.ErrAlreadyResponded)
		}

		r, err := p.Response(responseIndex)
		if err != nil {
			return err
		}
		r.Result++
		if !p.Anonymous {
			r.AppendParticipant(participant)
		}
		p.TotalResponses++
		p.AppendParticipant(participant)

		return p.CheckConsistency()
	})
	s.metrics.UpdateDuration.Observe(s.clock.Since(start).Seconds())
	s.metrics.Responses.WithLabelValues(responseResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Poll response recorded", "session_id", sessionID, "response_index", responseIndex, "total", p.TotalResponses)
	s.publish(ctx, sessionID, domain.PollEvent{Type: domain.EventPollResponse, Poll: p, ResponseIndex: &responseIndex})
	return p, nil
}

func responseResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultAccepted
	case errors.Is(err, domain.ErrAlreadyResponded):
		return metrics.ResultDuplicate
	case errors.Is(err, domain.ErrPollNotPending):
		return metrics.ResultNotPending
	case errors.Is(err, domain.ErrOutOfRange):
		return metrics.ResultBadIndex
	default:
		return metrics.ResultError
	}
}

// ClosePoll stops accepting responses and archives the results. Closing a
// closed poll returns it unchanged.
func (s *Service) ClosePoll(ctx context.Context, sessionID string) (*domain.Poll, error) {
	// Update may run fn again after a conflicting write, so closedNow only
	// reflects the attempt that committed.
	var closedNow bool
	p, err := s.polls.Update(ctx, sessionID, func(p *domain.Poll) error {
		closedNow = false
		if p.Status == domain.StatusClosed {
			return nil
		}
		p.Status = domain.StatusClosed
		p.ClosedAt = s.clock.Now().UTC()
		closedNow = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !closedNow {
		return p, nil
	}
	s.metrics.Closed.Inc()

	slog.InfoContext(ctx, "Poll closed", "session_id", sessionID, "total_responses", p.TotalResponses)
	s.archiveResults(ctx, p)
	s.publish(ctx, sessionID, domain.PollEvent{Type: domain.EventPollClosed, Poll: p})
	return p, nil
}

// archiveResults is best effort: a failed write never fails the close.
func (s *Service) archiveResults(ctx context.Context, p *domain.Poll) {
	if s.archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	if err := s.archive.Save(ctx, domain.BuildResults(p, p.ClosedAt)); err != nil {
		s.metrics.ArchiveErrors.Inc()
		slog.ErrorContext(ctx, "Failed to archive poll results", "session_id", p.SessionID, "error", err)
	}
}

func (s *Service) DeletePoll(ctx context.Context, sessionID string) error {
	if err := s.polls.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.Deleted.Inc()

	slog.InfoContext(ctx, "Poll deleted", "session_id", sessionID)
	s.publish(ctx, sessionID, domain.PollEvent{Type: domain.EventPollDeleted})
	return nil
}

// ExportResults summarises the closed poll of a session, falling back to the
// archive once the live poll is gone. Concurrent exports of one session share
// a single lookup; callers must not modify the result.
func (s *Service) ExportResults(ctx context.Context, sessionID string) (*domain.PollResults, error) {
	v, err, _ := s.exportGroup.Do(sessionID, func() (any, error) {
		// Shared by every caller waiting on this key, so it must outlive
		// the first one.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
		defer cancel()

		p, err := s.polls.Get(ctx, sessionID)
		if err == nil {
			if p.Status != domain.StatusClosed {
				return nil, fmt.Errorf("session %s is %s: %w", sessionID, p.Status, domain.ErrPollNotClosed)
			}
			return domain.BuildResults(p, p.ClosedAt), nil
		}
		if !errors.Is(err, domain.ErrPollNotFound) {
			return nil, err
		}

		if s.archive == nil {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrResultsNotFound)
		}
		return s.archive.Latest(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Exported.Inc()
	return v.(*domain.PollResults), nil
}

func (s *Service) publish(ctx context.Context, sessionID string, event domain.PollEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPollEvent(ctx, sessionID, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish poll event", "session_id", sessionID, "event", event.Type, "error", err)
	}
}

// PurgeExpired drops polls whose TTL has elapsed.
func (s *Service) PurgeExpired(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	n, err := s.polls.PurgeExpired(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to purge expired polls", "error", err)
		return
	}
	if n > 0 {
		s.metrics.Purged.Add(float64(n))
		slog.InfoContext(ctx, "Purged expired polls", "count", n)
	}
}

func (s *Service) startCleanupTimer() {
	ticker := s.clock.NewTicker(cleanupInterval)
	s.cleanupWg.Add(1)
	go func() {
		defer s.cleanupWg.Done()
		for {
			select {
			case <-ticker.Chan():
				s.PurgeExpired(correlation.WithID(context.Background(), correlation.NewID()))
			case <-s.cleanupStopCh:
				ticker.Stop()
				return
			}
		}
	}()
	slog.Info("Cleanup timer started", "interval", cleanupInterval.String())
}

// Stop halts the cleanup timer and waits for a running purge to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.cleanupStopCh)
	})
	s.cleanupWg.Wait()
}
