package worker

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// TokenPurger clears password reset tokens whose expiry has passed
type TokenPurger interface {
	PurgeExpiredResetTokens(now time.Time) (int64, error)
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewScheduler registers the maintenance jobs. The caller starts and stops it.
func NewScheduler(purger TokenPurger) (*cron.Cron, error) {
	sched := cron.New(cron.WithLocation(time.UTC), cron.WithParser(cronParser))

	_, err := sched.AddFunc("@every 1h", func() {
		PurgeResetTokens(purger, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// PurgeResetTokens runs one purge and logs the outcome
func PurgeResetTokens(purger TokenPurger, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("reset token purge panicked")
		}
	}()

	n, err := purger.PurgeExpiredResetTokens(now)
	if err != nil {
		log.Error().Err(err).Msg("reset token purge failed")
		return
	}
	if n > 0 {
		log.Info().Int64("cleared", n).Msg("expired reset tokens cleared")
	}
}
