package db

import (
	"context"
	"fmt"

	"github.com/giftvault/ingest/internal/domain"
)

// SupplierStore 是 Supplier 持久化协作方。
//
// 约束：
// - UpsertSuppliersByName 按 Name 匹配：存在则整体覆盖其他字段，不存在则插入
// - 同一批内的多条记录不保证跨记录事务（SQL 实现恰好在一个事务内完成）
type SupplierStore interface {
	UpsertSuppliersByName(ctx context.Context, suppliers []domain.Supplier) error
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	Close() error
}

// Open 按 driver 构造 SupplierStore：sqlite3 / postgres 走 SQL，json 走快照文件。
func Open(ctx context.Context, driver, dsn string) (SupplierStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, driver, dsn)
	case "json":
		return NewJSONStore(dsn), nil
	default:
		return nil, fmt.Errorf("未知 store driver：%q", driver)
	}
}
