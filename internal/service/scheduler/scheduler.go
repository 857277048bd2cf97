package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
	"flowengine/internal/service/userstate"
)

// claimBatch bounds how many timers one tick processes.
const claimBatch = 100

type Store interface {
	ClaimExpiredDelayTimers(ctx context.Context, now time.Time, limit int) ([]entity.DelayTimer, error)
	ReleaseDelayTimer(ctx context.Context, id string) error
	GetUserState(ctx context.Context, key entity.UserKey) (*entity.UserState, error)
}

type Engine interface {
	ProcessEvent(ctx context.Context, meta entity.EventMetadata, msg entity.NormalizedMessage) userstate.Outcome
}

// Scheduler sweeps expired delay timers and feeds synthetic delay_complete
// events back into the engine.
type Scheduler struct {
	store  Store
	engine Engine
	cron   *cron.Cron
	tick   int
	log    *slog.Logger
}

func New(store Store, engine Engine, tickSeconds int, log *slog.Logger) *Scheduler {
	if tickSeconds <= 0 {
		tickSeconds = 20
	}
	return &Scheduler{
		store:  store,
		engine: engine,
		cron:   cron.New(),
		tick:   tickSeconds,
		log:    log.With(sl.Module("service.scheduler")),
	}
}

func (s *Scheduler) Start() error {
	schedule := fmt.Sprintf("@every %ds", s.tick)
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return fmt.Errorf("schedule delay sweep: %w", err)
	}
	s.cron.Start()
	s.log.Info("delay scheduler started", slog.Int("tick_seconds", s.tick))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// sweep claims due timers and resumes their users. A failing timer is
// released for the next tick; a timer whose user vanished stays claimed.
func (s *Scheduler) sweep() {
	ctx := context.Background()

	timers, err := s.store.ClaimExpiredDelayTimers(ctx, time.Now().UTC(), claimBatch)
	if err != nil {
		s.log.Error("claim expired timers", sl.Err(err))
	}

	for _, timer := range timers {
		s.fire(ctx, timer)
	}
}

func (s *Scheduler) fire(ctx context.Context, timer entity.DelayTimer) {
	user, err := s.store.GetUserState(ctx, timer.UserKey)
	if err != nil {
		s.log.Error("load user for timer", slog.String("timer_id", timer.ID), sl.Err(err))
		s.release(ctx, timer.ID)
		return
	}
	if user == nil {
		s.log.Warn("timer fired for unknown user", slog.String("timer_id", timer.ID))
		return
	}

	meta := entity.EventMetadata{
		Sender:           user.Key.UserIdentifier,
		BrandID:          user.Key.BrandID,
		UserID:           user.UserID,
		Channel:          user.Key.Channel,
		ChannelAccountID: user.Key.ChannelAccountID,
		MessageType:      entity.MessageTypeDelayComplete,
	}
	msg := entity.NormalizedMessage{
		InteractiveType: entity.InteractiveNone,
		Raw: map[string]any{
			"user_state_id":  user.ID,
			"flow_id":        timer.FlowID,
			"node_id":        timer.DelayNodeID,
			"delay_duration": timer.DelayDuration,
			"delay_unit":     timer.DelayUnit,
		},
	}

	outcome := s.engine.ProcessEvent(ctx, meta, msg)
	switch outcome.Status {
	case userstate.OutcomeError:
		s.log.Error("delay complete failed",
			slog.String("timer_id", timer.ID),
			slog.String("detail", outcome.Detail),
		)
		s.release(ctx, timer.ID)
	default:
		s.log.Debug("delay complete processed",
			slog.String("timer_id", timer.ID),
			slog.String("status", outcome.Status),
		)
	}
}

func (s *Scheduler) release(ctx context.Context, timerID string) {
	if err := s.store.ReleaseDelayTimer(ctx, timerID); err != nil {
		s.log.Error("release timer", slog.String("timer_id", timerID), sl.Err(err))
	}
}
