package sweep

import (
	"context"
	"log"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/schedule"
)

// Scheduler: テナントごとの「最終下校時刻 + 猶予」を過ぎたら当日分のスイープを起動する。
// cron 的な全体状態からの推測ではなく sweep_runs の行で実行済みを判断するので、
// プロセス再起動しても二重実行にならない。

type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]uint64, error)
}

type ExitWindowSource interface {
	LastExitClock(ctx context.Context, tenantID uint64) (schedule.ClockTime, bool, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Scheduler struct {
	svc        *Service
	tenants    TenantLister
	exits      ExitWindowSource
	loc        *time.Location
	checkEvery time.Duration
	grace      time.Duration
	maxRetries int
	clock      Clock
}

func NewScheduler(svc *Service, tenants TenantLister, exits ExitWindowSource, loc *time.Location, checkEvery, grace time.Duration, maxRetries int) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		svc:        svc,
		tenants:    tenants,
		exits:      exits,
		loc:        loc,
		checkEvery: checkEvery,
		grace:      grace,
		maxRetries: maxRetries,
		clock:      realClock{},
	}
}

// WithClock: テスト用
func (sc *Scheduler) WithClock(c Clock) *Scheduler {
	sc.clock = c
	return sc
}

// Start: バックグラウンドの巡回ループを起動する。ctx で停止
func (sc *Scheduler) Start(ctx context.Context) {
	go func() {
		log.Printf("[INFO] sweep scheduler started (every %s)", sc.checkEvery)
		ticker := time.NewTicker(sc.checkEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[INFO] sweep scheduler stopped")
				return
			case <-ticker.C:
				sc.tick(ctx)
			}
		}
	}()
}

func (sc *Scheduler) tick(ctx context.Context) {
	ids, err := sc.tenants.ListTenantIDs(ctx)
	if err != nil {
		log.Printf("[WARN] sweep scheduler: list tenants failed: %v", err)
		return
	}

	now := sc.clock.Now().In(sc.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, sc.loc)

	for _, tenantID := range ids {
		due, err := sc.dueAt(ctx, tenantID, today)
		if err != nil {
			log.Printf("[WARN] sweep scheduler: tenant=%d: %v", tenantID, err)
			continue
		}
		if due.IsZero() || now.Before(due) {
			continue
		}

		// 既に成功済みならスキップ
		run, err := sc.svc.RunStatus(ctx, tenantID, today.Format(DateLayout))
		if err != nil {
			log.Printf("[WARN] sweep scheduler: tenant=%d: %v", tenantID, err)
			continue
		}
		if run != nil && run.Status == RunStatusDone {
			continue
		}

		if _, err := sc.svc.RunWithRetry(ctx, tenantID, today, sc.maxRetries); err != nil {
			log.Printf("[WARN] sweep tenant=%d failed after retries: %v", tenantID, err)
		}
	}
}

// dueAt: そのテナントの当日スイープ起動時刻。時間枠設定が無ければゼロ値（起動しない）
func (sc *Scheduler) dueAt(ctx context.Context, tenantID uint64, today time.Time) (time.Time, error) {
	last, ok, err := sc.exits.LastExitClock(ctx, tenantID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, nil
	}
	return last.On(today).Add(sc.grace), nil
}
