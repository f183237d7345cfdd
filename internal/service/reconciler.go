package service

import (
	"context"
	"fmt"
	"time"

	"school-im/internal/repository"
	"school-im/pkg/cache"
	"school-im/pkg/logger"
	"school-im/pkg/metrics"

	"github.com/adhocore/gronx"
)

// UnreadEnumerator 未读计数键枚举依赖
type UnreadEnumerator interface {
	AllUnreadEntries(ctx context.Context) ([]cache.UnreadEntry, error)
	GetUnread(ctx context.Context, userID uint, roomID string) (int64, bool, error)
	SetUnread(ctx context.Context, userID uint, roomID string, count int64) error
}

// UnreadCounter 未读计数回源依赖
type UnreadCounter interface {
	AllUnreadCounts() ([]repository.UnreadAggregate, error)
}

// Reconciler 未读计数对账任务
// 周期性以数据库推导的未读集合为准重置缓存：
// 修正偏差的键、重建过期丢失的键、清掉数据库中已无未读的残留键
type Reconciler struct {
	cache    UnreadEnumerator
	counter  UnreadCounter
	cronExpr string
}

// NewReconciler 创建Reconciler实例
func NewReconciler(c UnreadEnumerator, counter UnreadCounter, cronExpr string) *Reconciler {
	if cronExpr == "" {
		cronExpr = "*/10 * * * *"
	}
	return &Reconciler{cache: c, counter: counter, cronExpr: cronExpr}
}

// Start 启动对账调度，返回停止函数
func (r *Reconciler) Start(ctx context.Context) (context.CancelFunc, error) {
	if !gronx.IsValid(r.cronExpr) {
		return nil, fmt.Errorf("无效的对账cron表达式: %s", r.cronExpr)
	}
	ctx2, cancel := context.WithCancel(ctx)
	go r.runScheduler(ctx2)
	logger.Infof("未读计数对账任务已启动 cron=%s", r.cronExpr)
	return cancel, nil
}

// runScheduler 按cron表达式计算下一次触发时间并休眠等待
func (r *Reconciler) runScheduler(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("未读计数对账任务停止")
			return
		default:
		}

		next, err := gronx.NextTickAfter(r.cronExpr, time.Now(), false)
		if err != nil {
			logger.Errorf("计算对账触发时间失败 cron=%s: %v", r.cronExpr, err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := r.RunOnce(ctx); err != nil {
				logger.Errorf("未读计数对账执行失败: %v", err)
			}
		case <-ctx.Done():
			logger.Info("未读计数对账任务停止")
			return
		}
	}
}

// RunOnce 执行一轮对账，数据库计数为准
func (r *Reconciler) RunOnce(ctx context.Context) error {
	truth, err := r.counter.AllUnreadCounts()
	if err != nil {
		return fmt.Errorf("回源未读计数失败: %w", err)
	}
	entries, err := r.cache.AllUnreadEntries(ctx)
	if err != nil {
		return fmt.Errorf("枚举未读计数键失败: %w", err)
	}

	expected := make(map[cache.UnreadEntry]int64, len(truth))
	for _, agg := range truth {
		expected[cache.UnreadEntry{UserID: agg.UserID, RoomID: agg.RoomID}] = agg.Count
	}

	var repaired int
	repair := func(userID uint, roomID string, count int64) {
		if err := r.cache.SetUnread(ctx, userID, roomID, count); err != nil {
			logger.Warnf("对账写回失败 user=%d room=%s: %v", userID, roomID, err)
			return
		}
		repaired++
		metrics.ReconcileRepairs.Inc()
	}

	live := make(map[cache.UnreadEntry]struct{}, len(entries))
	for _, entry := range entries {
		live[entry] = struct{}{}
		want, ok := expected[entry]
		if !ok {
			// 数据库已无未读，残留键清零即删除
			repair(entry.UserID, entry.RoomID, 0)
			continue
		}
		cached, found, err := r.cache.GetUnread(ctx, entry.UserID, entry.RoomID)
		if err != nil {
			continue
		}
		if found && cached == want {
			continue
		}
		repair(entry.UserID, entry.RoomID, want)
	}

	// TTL过期丢失的键按数据库重建，聚合读不再漏报
	for key, want := range expected {
		if _, ok := live[key]; ok {
			continue
		}
		repair(key.UserID, key.RoomID, want)
	}

	logger.Infof("未读计数对账完成 keys=%d repaired=%d", len(entries), repaired)
	return nil
}
