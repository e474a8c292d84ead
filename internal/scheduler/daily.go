package scheduler

import (
	"context"
	"time"

	"propguard/internal/logger"
)

// DailyScheduler runs a task once per UTC day at midnight plus Offset.
// The start-of-day equity reset hangs off this; the task itself is
// idempotent, so RunImmediately is safe after a restart mid-day.
type DailyScheduler struct {
	Name           string
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewDailyScheduler(ctx context.Context, offset time.Duration) *DailyScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &DailyScheduler{
		Offset: offset,
		ctx:    ctx,
		nowFn:  time.Now,
	}
}

func (s *DailyScheduler) Start(task func()) {
	if s == nil {
		return
	}
	prefix := "DailyScheduler"
	if s.Name != "" {
		prefix = prefix + "[" + s.Name + "]"
	}
	if task == nil {
		logger.Warnf("%s: task is nil, exit", prefix)
		return
	}
	if s.Offset < 0 {
		logger.Warnf("%s: negative offset=%s, clamp to 0", prefix, s.Offset)
		s.Offset = 0
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("%s: started offset=%s run_immediately=%v at=%s",
		prefix, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		logger.Infof("%s: RunImmediately=true, execute once before first midnight", prefix)
		task()
	}

	for {
		now := s.nowFn().UTC()
		nextAt := nextUTCMidnightAfter(now).Add(s.Offset)
		logger.Infof("%s: next run=%s (in %s) | uptime=%s",
			prefix,
			nextAt.Format(time.RFC3339),
			nextAt.Sub(now).Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)
		if !s.waitUntil(nextAt, prefix) {
			return
		}
		task()
	}
}

func (s *DailyScheduler) waitUntil(target time.Time, prefix string) bool {
	now := s.nowFn().UTC()
	wait := target.Sub(now)
	if wait <= 0 {
		select {
		case <-s.ctx.Done():
			logger.Infof("%s: ctx done, exit", prefix)
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	select {
	case <-s.ctx.Done():
		timer.Stop()
		logger.Infof("%s: ctx done, exit", prefix)
		return false
	case <-timer.C:
		return true
	}
}

func nextUTCMidnightAfter(now time.Time) time.Time {
	now = now.UTC()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
