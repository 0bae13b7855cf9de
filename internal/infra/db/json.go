package db

import (
	"context"
	"sync"

	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/infra/fsx"
)

// JSONStore 把全部 Supplier 保存为一个 JSON 快照文件（每次 upsert 原子重写）。
// 适合本地调试与离线导出；不支持多进程并发写。
type JSONStore struct {
	mu   sync.Mutex
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) UpsertSuppliersByName(_ context.Context, suppliers []domain.Supplier) error {
	if len(suppliers) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load()
	if err != nil {
		return err
	}
	idx := make(map[string]int, len(cur))
	for i, sup := range cur {
		idx[sup.Name] = i
	}
	for _, sup := range suppliers {
		sup.Stores = nonNilStores(sup.Stores)
		sup.CardTypes = nonNilCardTypes(sup.CardTypes)
		if i, ok := idx[sup.Name]; ok {
			cur[i] = sup
			continue
		}
		idx[sup.Name] = len(cur)
		cur = append(cur, sup)
	}
	return fsx.WriteJSONAtomic(s.path, cur)
}

func (s *JSONStore) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) load() ([]domain.Supplier, error) {
	var cur []domain.Supplier
	if _, err := fsx.ReadJSON(s.path, &cur); err != nil {
		return nil, err
	}
	if cur == nil {
		cur = []domain.Supplier{}
	}
	return cur, nil
}
