package cli

import (
	"context"
	"time"

	"myrepo/internal/adapters"
	"myrepo/internal/app"
	"myrepo/internal/ports"
)

var newAppService = func() app.Service {
	return app.NewService()
}

var summary ports.SummaryPort = adapters.NewSummaryTableAdapter()

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
