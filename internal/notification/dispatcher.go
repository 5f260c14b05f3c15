package notification

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

// 通知インテント。実際の配送（SMS/アプリ通知）は外部のディスパッチャが行う。
// ここでは「分類が成功したら投げる・失敗しても分類は巻き戻さない」だけを保証する。

type Intent struct {
	TenantID   uint64
	Attendable roster.AttendableRef
	RecordULID string
	Kind       string // ENTRY / EXIT / SWEEP
	Status     string // PRESENT / LATE / ...
	Date       string // YYYY-MM-DD
}

// Transport: 外部配送の口。エラーはログするだけで伝播しない
type Transport interface {
	Send(ctx context.Context, in Intent) error
}

// LogTransport: 既定の配送先（ログに書くだけ）。本番では外部連携の実装に差し替える
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, in Intent) error {
	log.Printf("[INFO] notify tenant=%d %s/%d %s -> %s (%s)",
		in.TenantID, in.Attendable.Type, in.Attendable.ID, in.Kind, in.Status, in.Date)
	return nil
}

// Marker: 配送成功後に出欠レコードの notified フラグを立てる口
type Marker interface {
	MarkNotified(ctx context.Context, recordULID string) error
}

// Dispatcher: 有界キュー + 1ワーカー。Enqueue は絶対にブロックしない。
// キューが溢れたら捨ててログする（通知はベストエフォート）。
type Dispatcher struct {
	ch        chan Intent
	transport Transport
	marker    Marker

	stopOnce sync.Once
	done     chan struct{}
}

const sendTimeout = 5 * time.Second

func NewDispatcher(transport Transport, marker Marker, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &Dispatcher{
		ch:        make(chan Intent, queueSize),
		transport: transport,
		marker:    marker,
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue: ノンブロッキング投入。満杯なら捨てる
func (d *Dispatcher) Enqueue(in Intent) {
	select {
	case d.ch <- in:
	default:
		log.Printf("[WARN] notification queue full, dropping intent for %s/%d on %s",
			in.Attendable.Type, in.Attendable.ID, in.Date)
	}
}

func (d *Dispatcher) run() {
	for in := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.transport.Send(ctx, in)
		if err != nil {
			log.Printf("[WARN] notification send failed (dropped): %v", err)
			cancel()
			continue
		}
		if d.marker != nil && in.RecordULID != "" {
			if err := d.marker.MarkNotified(ctx, in.RecordULID); err != nil {
				log.Printf("[WARN] failed to mark record notified: %v", err)
			}
		}
		cancel()
	}
	close(d.done)
}

// Close: キューを閉じて残りを掃き出すまで待つ（シャットダウン用）
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		close(d.ch)
		<-d.done
	})
}
