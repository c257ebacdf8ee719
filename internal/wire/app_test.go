package wire

import (
	"context"
	"testing"
	"time"

	"namepilot-ai-api/internal/application/admission"
	appcache "namepilot-ai-api/internal/application/cache"
	"namepilot-ai-api/internal/config"
)

// Start 只负责拉起后台循环；它必须立即返回，否则 main 永远走不到 ListenAndServe。
func TestAppStartReturnsWhileLoopsRun(t *testing.T) {
	cfg := &config.Config{}
	cfg.Admission.QueueSize = 8
	cfg.Admission.SampleInterval = 10 * time.Millisecond
	cfg.Admission.Breaker.EvalInterval = 10 * time.Millisecond

	app := &App{
		Admission:  admission.NewController(cfg),
		LocalCache: appcache.NewLocalCache(&cfg.Cache.Local),
		Warmer:     appcache.NewWarmer(&cfg.Cache.Warming, nil),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		app.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start blocked instead of returning after launching background loops")
	}
}
