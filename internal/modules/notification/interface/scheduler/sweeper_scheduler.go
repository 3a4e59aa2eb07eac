package scheduler

import (
	"context"
	"sync"
	"time"

	"SchoolLink/internal/modules/notification/application/service"
	"SchoolLink/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 50 * time.Second

// SweeperScheduler 定时补偿卡在 pending 的通知，上一轮没跑完时跳过本轮
type SweeperScheduler struct {
	cron    *cron.Cron
	sweeper service.PendingSweeper
	spec    string

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func NewSweeperScheduler(sweeper service.PendingSweeper, spec string) *SweeperScheduler {
	logger := cronLogger{}
	return &SweeperScheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)), cron.WithLogger(logger)),
		sweeper: sweeper,
		spec:    spec,
	}
}

func (s *SweeperScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		s.cancel()
		return err
	}
	s.cron.Start()
	s.started = true
	zlog.Info("pending sweeper scheduled", zap.String("spec", s.spec))
	return nil
}

// Stop 取消正在执行的一轮并等待它退出
func (s *SweeperScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.started = false
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
}

func (s *SweeperScheduler) RunOnce() {
	parent := context.Background()
	s.mu.Lock()
	if s.ctx != nil {
		parent = s.ctx
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		zlog.Warn("pending sweep failed", zap.Error(err))
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	zlog.Debug("cron: "+msg, zap.Any("kv", keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zlog.Error("cron: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
