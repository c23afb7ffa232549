package budget

import (
	"context"
	"fmt"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

const DefaultSchedule = "@hourly"

// checkJob must implement the Job interface.
var _ cron.Job = checkJob{}

type checkJob struct {
	logger  logrus.FieldLogger
	checker *Checker
	target  Target
}

func (j checkJob) Run() {
	if _, err := j.checker.Check(j.target); err != nil {
		j.logger.WithError(err).WithField("endpoint", j.target.EndpointName).Errorf("budget check failed")
	}
}

// ParseSchedule accepts a standard five field cron expression or a
// descriptor such as @hourly.
func ParseSchedule(expr string) (cron.Schedule, error) {
	if expr == "" {
		expr = DefaultSchedule
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %v", expr, err)
	}
	return sched, nil
}

// Watcher periodically checks budget targets and keeps the budget gauges
// current.
type Watcher struct {
	logger   logrus.FieldLogger
	checker  *Checker
	schedule cron.Schedule
	targets  []Target
}

func NewWatcher(logger logrus.FieldLogger, checker *Checker, schedule string, targets []Target) (*Watcher, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one budget target is required")
	}
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		logger:   logger.WithField("component", "budgetWatcher"),
		checker:  checker,
		schedule: sched,
		targets:  targets,
	}, nil
}

// Run checks every target once, then on schedule until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	scheduler := cron.New()
	for _, target := range w.targets {
		job := checkJob{logger: w.logger, checker: w.checker, target: target}
		job.Run()
		scheduler.Schedule(w.schedule, job)
	}

	w.logger.Infof("watching %d budget targets", len(w.targets))
	scheduler.Start()
	<-ctx.Done()
	scheduler.Stop()
	w.logger.Infof("budget watcher stopped")
	return nil
}
