package stats

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/carlo/audit-trail/internal/audit"
	"github.com/carlo/audit-trail/internal/metrics"
)

// Run starts a background job that refreshes the stored-entries gauge from
// the store on the given cron spec (e.g. "@every 60s"). It refreshes once
// immediately so the gauge is populated before the first tick. The returned
// cron can be stopped by the caller on shutdown.
func Run(store audit.Store, spec string) (*cron.Cron, error) {
	refresh := func() {
		counts, err := store.CountBySubjectType(context.Background())
		if err != nil {
			slog.Error("stats: count entries", "err", err)
			return
		}
		for subjectType, n := range counts {
			metrics.SetEntriesStored(subjectType, n)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, refresh); err != nil {
		return nil, err
	}
	refresh()
	c.Start()
	return c, nil
}
