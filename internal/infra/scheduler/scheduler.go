package scheduler

import (
	"sync"
	"time"

	"challenge_reminder_bot/internal/domain/reminder"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronScheduler is the single in-process job scheduler. Each job carries its own
// CRON_TZ, so the engine location only affects jobs that do not set one.
type CronScheduler struct {
	cronEngine *cron.Cron
	logger     *logrus.Entry

	startOnce sync.Once
}

func NewCronScheduler(logger *logrus.Entry) *CronScheduler {
	cronLogger := cron.PrintfLogger(logger.WithField("source", "cron"))
	return &CronScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		logger: logger,
	}
}

// Schedule registers job to run on every occurrence of rule.
func (s *CronScheduler) Schedule(rule reminder.Rule, job func()) (reminder.JobHandle, error) {
	spec, err := rule.CronSpec()
	if err != nil {
		return 0, err
	}
	id, err := s.cronEngine.AddFunc(spec, job)
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{
		"job_id": int(id),
		"spec":   spec,
	}).Debug("Job scheduled")
	return reminder.JobHandle(id), nil
}

// Cancel removes the job. robfig/cron ignores ids it does not know.
func (s *CronScheduler) Cancel(h reminder.JobHandle) {
	if h == 0 {
		return
	}
	s.cronEngine.Remove(cron.EntryID(h))
	s.logger.WithField("job_id", int(h)).Debug("Job cancelled")
}

// Next returns the next fire time of a job, zero if unknown or not started.
func (s *CronScheduler) Next(h reminder.JobHandle) time.Time {
	return s.cronEngine.Entry(cron.EntryID(h)).Next
}

// Len is the number of registered jobs.
func (s *CronScheduler) Len() int {
	return len(s.cronEngine.Entries())
}

func (s *CronScheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.WithField("jobs", s.Len()).Info("Starting reminder scheduler...")
		s.cronEngine.Start()
	})
}

func (s *CronScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
