package cache

import (
	"context"
	"sync"
	"time"

	"github.com/giftvault/ingest/internal/domain"
)

// DefaultTTL 是未配置时的缓存有效期。
const DefaultTTL = 10 * time.Minute

// Cache 按源 URL 缓存“已规范化”的 Store 列表（不是原始 payload）。
//
// 约束：
// - Get 只在 now < expiresAt 时命中；过期视为不存在
// - 空列表也是合法值，命中时 ok=true 且 len==0
// - 返回的切片归调用方所有（实现需复制，避免共享底层数组）
type Cache interface {
	Get(ctx context.Context, key string) (stores []domain.Store, ok bool, err error)
	Put(ctx context.Context, key string, stores []domain.Store, ttl time.Duration) error
}

type entry struct {
	data      []domain.Store
	expiresAt time.Time
}

// Memory 是进程内缓存；不跨进程、不持久化。
// 每个 Coordinator 持有自己的实例（构造注入），测试之间不共享隐藏状态。
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock 允许注入时钟（测试中推进时间验证 TTL）。
func NewMemoryWithClock(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]domain.Store, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		// 惰性淘汰
		delete(m.entries, key)
		return nil, false, nil
	}
	return cloneStores(e.data), true, nil
}

func (m *Memory) Put(_ context.Context, key string, stores []domain.Store, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		data:      cloneStores(stores),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Len 返回当前条目数（包含尚未被惰性淘汰的过期条目）。
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func cloneStores(in []domain.Store) []domain.Store {
	out := make([]domain.Store, len(in))
	copy(out, in)
	return out
}
