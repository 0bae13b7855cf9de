package provider

import (
	"fmt"

	"github.com/giftvault/ingest/internal/domain"
)

// Registry 是 adapter 的只读注册表（按 ProviderKind 索引）。
type Registry struct {
	byKind map[domain.ProviderKind]Adapter
}

func NewRegistry(adapters ...Adapter) (Registry, error) {
	byKind := make(map[domain.ProviderKind]Adapter, len(adapters))
	for _, a := range adapters {
		if a == nil {
			return Registry{}, fmt.Errorf("adapter 不能为空")
		}
		k := a.Kind()
		if _, err := domain.ParseKind(string(k)); err != nil {
			return Registry{}, err
		}
		if _, ok := byKind[k]; ok {
			return Registry{}, fmt.Errorf("重复的 provider：%q", k)
		}
		byKind[k] = a
	}
	return Registry{byKind: byKind}, nil
}

func (r Registry) Get(kind domain.ProviderKind) (Adapter, bool) {
	if r.byKind == nil {
		return nil, false
	}
	a, ok := r.byKind[kind]
	return a, ok
}

// Kinds 按 domain.AllKinds 的固定顺序返回已注册的 provider。
func (r Registry) Kinds() []domain.ProviderKind {
	out := make([]domain.ProviderKind, 0, len(r.byKind))
	for _, k := range domain.AllKinds {
		if _, ok := r.byKind[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
