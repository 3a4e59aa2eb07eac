package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDispatchConcurrency = 16

	reasonDisabled      = "disabled_by_user"
	reasonNoDestination = "no_destination"
	reasonLookupFailed  = "lookup_failed"
	reasonAllFailed     = "all_destinations_failed"
	reasonPanic         = "dispatch_panic"
)

// DispatchJob 一次提交后的推送任务
type DispatchJob struct {
	NotificationId string
	TenantId       string
	Type           entity.NotificationType
	Recipients     []entity.Recipient
	Context        MessageContext
}

// PushDispatcher 只在事务提交之后调用，推送结果不会改动站内信状态
type PushDispatcher interface {
	Dispatch(ctx context.Context, job DispatchJob) (*respond.DispatchReport, error)
}

type pushDispatcherImpl struct {
	tokenRepo   repository.PushTokenRepository
	settings    repository.NotificationSettingRepository
	gateway     repository.PushGateway
	concurrency int
}

func NewPushDispatcher(tokenRepo repository.PushTokenRepository, settings repository.NotificationSettingRepository, gateway repository.PushGateway, concurrency int) PushDispatcher {
	if concurrency <= 0 {
		concurrency = defaultDispatchConcurrency
	}
	return &pushDispatcherImpl{
		tokenRepo:   tokenRepo,
		settings:    settings,
		gateway:     gateway,
		concurrency: concurrency,
	}
}

func (d *pushDispatcherImpl) Dispatch(ctx context.Context, job DispatchJob) (*respond.DispatchReport, error) {
	report := &respond.DispatchReport{Total: len(job.Recipients), Complete: true}
	if len(job.Recipients) == 0 {
		return report, nil
	}

	// 调用方取消后，已经开始的推送继续跑完
	workCtx := context.WithoutCancel(ctx)
	results := make(chan respond.RecipientDispatchResult, len(job.Recipients))
	// g.Go 在达到上限时阻塞，放进单独的 goroutine 里提交，下面的 select 才能及时响应取消
	go func() {
		var g errgroup.Group
		g.SetLimit(d.concurrency)
		for _, rc := range job.Recipients {
			g.Go(func() error {
				results <- d.dispatchOne(workCtx, job, rc)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	for {
		select {
		case res, ok := <-results:
			if !ok {
				return report, nil
			}
			addResult(report, res)
		case <-ctx.Done():
			partial := *report
			partial.Complete = false
			partial.Results = append([]respond.RecipientDispatchResult(nil), report.Results...)
			go drainDispatch(job, report, results)
			return &partial, ctx.Err()
		}
	}
}

func addResult(report *respond.DispatchReport, res respond.RecipientDispatchResult) {
	report.Results = append(report.Results, res)
	if res.Success {
		report.Succeeded++
	} else {
		report.Failed++
	}
}

// drainDispatch 收集调用方放弃等待后的剩余结果，只记日志
func drainDispatch(job DispatchJob, report *respond.DispatchReport, results <-chan respond.RecipientDispatchResult) {
	for res := range results {
		addResult(report, res)
	}
	zlog.Info("push dispatch finished in background",
		zap.String("notification_id", job.NotificationId),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
}

func (d *pushDispatcherImpl) dispatchOne(ctx context.Context, job DispatchJob, rc entity.Recipient) (res respond.RecipientDispatchResult) {
	res = respond.RecipientDispatchResult{RecipientId: rc.AccountId, Role: string(rc.Role)}
	defer func() {
		if r := recover(); r != nil {
			zlog.Error("push dispatch panic",
				zap.String("notification_id", job.NotificationId),
				zap.String("recipient_id", rc.AccountId),
				zap.Any("panic", r))
			res.Success = false
			res.Reason = reasonPanic
		}
	}()

	if !d.allowed(ctx, job, rc) {
		res.Reason = reasonDisabled
		return res
	}

	tokens, err := d.tokenRepo.ListActive(ctx, job.TenantId, rc.AccountId)
	if err != nil {
		zlog.Warn("push: load destinations failed", zap.String("recipient_id", rc.AccountId), zap.Error(err))
		res.Reason = reasonLookupFailed
		return res
	}
	res.Destinations = len(tokens)
	if len(tokens) == 0 {
		res.Reason = reasonNoDestination
		return res
	}

	content := ContentFor(job.Type, rc.Role, job.Context)
	data := map[string]interface{}{
		"notification_id": job.NotificationId,
		"type":            string(job.Type),
		"user_type":       string(rc.Role),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}
	var lastErr error
	for _, t := range tokens {
		if t.TenantId != job.TenantId {
			continue
		}
		ok, err := d.gateway.SendPush(ctx, t.Token, content.Title, content.Body, data)
		if errors.Is(err, repository.ErrDestinationRevoked) {
			if derr := d.tokenRepo.DeactivateToken(ctx, t.Token); derr != nil {
				zlog.Warn("push: deactivate revoked token failed", zap.String("recipient_id", rc.AccountId), zap.Error(derr))
			}
		}
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			res.Delivered++
		}
	}
	if res.Delivered > 0 {
		res.Success = true
		return res
	}
	res.Reason = reasonAllFailed
	if lastErr != nil {
		res.Reason = fmt.Sprintf("%s: %v", reasonAllFailed, lastErr)
	}
	return res
}

// allowed 读不到设置时按开启处理，推送是尽力而为
func (d *pushDispatcherImpl) allowed(ctx context.Context, job DispatchJob, rc entity.Recipient) bool {
	if d.settings == nil {
		return true
	}
	setting, err := d.settings.Get(ctx, job.TenantId, rc.AccountId)
	if err != nil {
		zlog.Warn("push: load notification setting failed", zap.String("recipient_id", rc.AccountId), zap.Error(err))
		return true
	}
	return setting.AllowsPush(job.Type)
}
