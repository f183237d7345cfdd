package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 聊天核心指标
var (
	// MessagesSent 成功持久化的消息总数
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schoolim_messages_sent_total",
		Help: "Total number of chat messages durably stored.",
	})

	// RecentCacheHits 最近消息缓存命中数
	RecentCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schoolim_recent_cache_hits_total",
		Help: "Recent-message cache hits on first-page history reads.",
	})

	// RecentCacheMisses 最近消息缓存未命中数（含缓存故障旁路）
	RecentCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schoolim_recent_cache_misses_total",
		Help: "Recent-message cache misses or bypasses falling back to the store.",
	})

	// FanoutDropped 因订阅者缓冲满而丢弃的事件数
	FanoutDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schoolim_fanout_dropped_total",
		Help: "Events dropped because a subscriber buffer was full.",
	})

	// ReconcileRepairs 对账任务修复的未读计数键数
	ReconcileRepairs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schoolim_unread_reconcile_repairs_total",
		Help: "Unread counter keys repaired by the reconciliation sweep.",
	})
)

// Register 注册全部指标，进程内只能调用一次
func Register() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(RecentCacheHits)
	prometheus.MustRegister(RecentCacheMisses)
	prometheus.MustRegister(FanoutDropped)
	prometheus.MustRegister(ReconcileRepairs)
}

// Handler 返回/metrics处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
