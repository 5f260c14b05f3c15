package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy: 規定時間内にロックが取れなかった
var ErrBusy = errors.New("key is busy")

// KeyLock: 文字列キー単位の排他。
// スキャン処理の (tenant, attendable, date) 直列化に使う。
// 未使用キーのエントリは最後の解放時に回収するので、キー数は増え続けない。
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch      chan struct{} // cap=1 セマフォ
	waiters int
}

func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

// Acquire: key のロックを取得する。timeout か ctx のどちらか早い方で諦めて ErrBusy。
// 成功時は解放用の関数を返す。解放は必ず呼ぶこと（defer 推奨）。
func (k *KeyLock) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.waiters++
	k.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() { k.release(key, e) }, nil
	case <-timer.C:
		k.abandon(key, e)
		return nil, ErrBusy
	case <-ctx.Done():
		k.abandon(key, e)
		return nil, ErrBusy
	}
}

func (k *KeyLock) release(key string, e *entry) {
	<-e.ch
	k.abandon(key, e)
}

func (k *KeyLock) abandon(key string, e *entry) {
	k.mu.Lock()
	e.waiters--
	if e.waiters == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
