package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/giftvault/ingest/internal/domain"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLStore 把 Supplier 存在一张 suppliers 表里（stores / card_types 为 JSON 列）。
type SQLStore struct {
	conn   *sql.DB
	driver string
}

// OpenSQL 打开数据库、检查连通性并初始化表结构。
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver == DriverSQLite && !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite 单写者：一个连接避免 database is locked。
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	s := &SQLStore{conn: conn, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS suppliers (
		name TEXT PRIMARY KEY,
		logo TEXT NOT NULL,
		description TEXT NOT NULL,
		from_color TEXT NOT NULL,
		to_color TEXT NOT NULL,
		card_types TEXT NOT NULL,
		stores TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	_, err := s.conn.ExecContext(ctx, query)
	return err
}

// UpsertSuppliersByName 在一个事务内按 name upsert 全部 supplier。
func (s *SQLStore) UpsertSuppliersByName(ctx context.Context, suppliers []domain.Supplier) error {
	if len(suppliers) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO suppliers (
		name, logo, description, from_color, to_color, card_types, stores, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		logo = excluded.logo,
		description = excluded.description,
		from_color = excluded.from_color,
		to_color = excluded.to_color,
		card_types = excluded.card_types,
		stores = excluded.stores,
		updated_at = excluded.updated_at`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, sup := range suppliers {
		stores, err := json.Marshal(nonNilStores(sup.Stores))
		if err != nil {
			return err
		}
		cardTypes, err := json.Marshal(nonNilCardTypes(sup.CardTypes))
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			sup.Name,
			sup.Logo,
			sup.Description,
			sup.FromColor,
			sup.ToColor,
			string(cardTypes),
			string(stores),
			now,
		); err != nil {
			return fmt.Errorf("failed to upsert supplier %q: %w", sup.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name, logo, description, from_color, to_color, card_types, stores
		FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var (
			sup       domain.Supplier
			cardTypes string
			stores    string
		)
		if err := rows.Scan(&sup.Name, &sup.Logo, &sup.Description, &sup.FromColor, &sup.ToColor, &cardTypes, &stores); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		if err := json.Unmarshal([]byte(cardTypes), &sup.CardTypes); err != nil {
			return nil, fmt.Errorf("supplier %q: bad card_types: %w", sup.Name, err)
		}
		if err := json.Unmarshal([]byte(stores), &sup.Stores); err != nil {
			return nil, fmt.Errorf("supplier %q: bad stores: %w", sup.Name, err)
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

// rebind 把 ? 占位符改写为 postgres 的 $N。
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	return Rebind(q)
}

// Rebind 把 ? 依次替换为 $1, $2, ...
func Rebind(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nonNilStores(in []domain.Store) []domain.Store {
	if in == nil {
		return []domain.Store{}
	}
	return in
}

func nonNilCardTypes(in []domain.CardType) []domain.CardType {
	if in == nil {
		return []domain.CardType{}
	}
	return in
}
