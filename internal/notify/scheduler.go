package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bosunhq/bosun/internal/logging"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	lockKeyPrefix = "bosun:lock:digest"
	lockTTL       = 5 * time.Minute
)

// lockKeyFor names the lock for one cron tick. Instances whose timers fire
// within the same minute share a key, and a sent digest keeps its lock
// until the TTL lapses.
func lockKeyFor(orgID string, tick time.Time) string {
	if orgID == "" {
		orgID = "all"
	}
	return fmt.Sprintf("%s:%s:%d", lockKeyPrefix, orgID, tick.UTC().Truncate(time.Minute).Unix())
}

// ErrSkipped is returned by Fire when another instance holds the digest
// lock.
var ErrSkipped = errors.New("notify: digest already running elsewhere")

// Scheduler sends the digest on a cron schedule.
type Scheduler struct {
	db      *gorm.DB
	adapter Adapter
	locker  *redislock.Client
	logger  logrus.FieldLogger
	cron    string
	orgID   string
	now     func() time.Time
}

// SchedulerOpts holds parameters for creating a Scheduler.
type SchedulerOpts struct {
	DB      *gorm.DB
	Adapter Adapter
	Cron    string            // 5-field expression or descriptor
	Locker  *redislock.Client // optional; when set, one instance per tick sends
	Logger  logrus.FieldLogger
	OrgID   string // optional; limits the digest to one organization
}

// NewScheduler validates opts and returns a Scheduler.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: db is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("notify: adapter is required")
	}
	if _, err := cronParser.Parse(opts.Cron); err != nil {
		return nil, fmt.Errorf("notify: cron %q: %w", opts.Cron, err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Scheduler{
		db:      opts.DB,
		adapter: opts.Adapter,
		locker:  opts.Locker,
		logger:  opts.Logger,
		cron:    opts.Cron,
		orgID:   opts.OrgID,
		now:     time.Now,
	}, nil
}

// Run connects the adapter and fires the digest at every cron tick until
// ctx is cancelled. Send failures are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("notify: connect: %w", err)
	}
	defer func() {
		if err := s.adapter.Close(); err != nil {
			logging.LogError(s.logger, "notify", "Run", "close adapter", nil, err)
		}
	}()

	var timer *time.Timer
	if d := nextCronDuration(s.cron, s.now()); d > 0 {
		timer = time.NewTimer(d)
		defer timer.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timerChan(timer):
			if _, err := s.Fire(ctx); err != nil && !errors.Is(err, ErrSkipped) {
				logging.LogError(s.logger, "notify", "Run", "fire digest", s.cron, err)
			}
			if d := nextCronDuration(s.cron, s.now()); d > 0 {
				timer.Reset(d)
			}
		}
	}
}

// Once connects the adapter, fires a single digest and closes the adapter.
func (s *Scheduler) Once(ctx context.Context) (bool, error) {
	if err := s.adapter.Connect(ctx); err != nil {
		return false, fmt.Errorf("notify: connect: %w", err)
	}
	defer func() {
		if err := s.adapter.Close(); err != nil {
			logging.LogError(s.logger, "notify", "Once", "close adapter", nil, err)
		}
	}()
	return s.Fire(ctx)
}

// Fire builds the digest and sends it. It reports whether a message was
// sent: an empty digest is suppressed. The adapter must be connected.
// With a locker, the tick's lock outlives a successful send so a later
// instance on the same tick skips.
func (s *Scheduler) Fire(ctx context.Context) (sent bool, err error) {
	now := s.now()
	if s.locker != nil {
		key := lockKeyFor(s.orgID, now)
		lock, lockErr := s.locker.Obtain(ctx, key, lockTTL, nil)
		if errors.Is(lockErr, redislock.ErrNotObtained) {
			s.logger.WithField("lock", key).Info("digest lock held elsewhere; skipping")
			return false, ErrSkipped
		}
		if lockErr != nil {
			return false, fmt.Errorf("notify: obtain lock: %w", lockErr)
		}
		defer func() {
			if err != nil {
				_ = lock.Release(context.WithoutCancel(ctx))
			}
		}()
	}

	d, err := BuildDigest(s.db, s.orgID, now)
	if err != nil {
		return false, fmt.Errorf("notify: build digest: %w", err)
	}
	if d == nil {
		s.logger.Debug("digest empty; nothing sent")
		return false, nil
	}
	if err := s.adapter.Send(ctx, FormatDigest(d)); err != nil {
		return false, fmt.Errorf("notify: send digest: %w", err)
	}
	s.logger.WithField("vessels", len(d.Vessels)).Info("digest sent")
	return true, nil
}
