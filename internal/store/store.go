// 包 store: 提供与 PostgreSQL 的数据访问层，负责路由图快照的发布、加载与回滚
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"campus-nav/internal/failure"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
)

var (
	ErrNoSnapshot = errors.New("no active graph snapshot")
	ErrNoPrevious = errors.New("no previous graph snapshot")
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &Store{db: db}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Snapshot: 快照元数据（不含图体）
type Snapshot struct {
	ID        int64     `json:"id"`
	SourceTag string    `json:"source_tag"`
	BuiltAt   time.Time `json:"built_at"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	RoomCount int       `json:"room_count"`
	Active    bool      `json:"active"`
}

// Publish: 单事务写入新快照并设为唯一 active
func (s *Store) Publish(ctx context.Context, tag string, g *graph.Graph, buildings []graph.Building) (int64, error) {
	gb, err := json.Marshal(g)
	if err != nil {
		return 0, fmt.Errorf("encode graph: %w", err)
	}
	if buildings == nil {
		buildings = []graph.Building{}
	}
	bb, err := json.Marshal(buildings)
	if err != nil {
		return 0, fmt.Errorf("encode buildings: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `UPDATE _graph_snapshots SET active = false WHERE active`); err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRowContext(ctx, `INSERT INTO _graph_snapshots(source_tag, node_count, edge_count, room_count, graph, buildings, active)
        VALUES($1, $2, $3, $4, $5, $6, true) RETURNING id`,
		tag, len(g.Nodes), len(g.Edges), len(g.Rooms), gb, bb).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.L().Info("graph_snapshot_published", "id", id, "tag", tag, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return id, nil
}

// LoadActive: 读取当前 active 快照；数据库不可用或无快照时返回 FetchError
func (s *Store) LoadActive(ctx context.Context) (*graph.Graph, []graph.Building, Snapshot, error) {
	var meta Snapshot
	var gb, bb []byte
	err := s.db.QueryRowContext(ctx, `SELECT id, source_tag, built_at, node_count, edge_count, room_count, graph, buildings
        FROM _graph_snapshots WHERE active LIMIT 1`).
		Scan(&meta.ID, &meta.SourceTag, &meta.BuiltAt, &meta.NodeCount, &meta.EdgeCount, &meta.RoomCount, &gb, &bb)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, meta, &failure.FetchError{Dataset: "graph snapshot", Err: ErrNoSnapshot}
	}
	if err != nil {
		return nil, nil, meta, &failure.FetchError{Dataset: "graph snapshot", Err: err}
	}
	meta.Active = true
	g, err := graph.Decode(bytes.NewReader(gb))
	if err != nil {
		return nil, nil, meta, fmt.Errorf("snapshot %d: %w", meta.ID, err)
	}
	var buildings []graph.Building
	if err := json.Unmarshal(bb, &buildings); err != nil {
		return nil, nil, meta, &failure.MalformedError{Entity: "buildings snapshot", Reason: err.Error()}
	}
	return g, buildings, meta, nil
}

// Activate: 将指定快照设为唯一 active
func (s *Store) Activate(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `UPDATE _graph_snapshots SET active = false WHERE active`); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE _graph_snapshots SET active = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot %d: %w", id, sql.ErrNoRows)
	}
	return tx.Commit()
}

// Rollback: 激活当前 active 之前最近的一个快照
func (s *Store) Rollback(ctx context.Context) (Snapshot, error) {
	var prev Snapshot
	err := s.db.QueryRowContext(ctx, `SELECT id, source_tag, built_at, node_count, edge_count, room_count
        FROM _graph_snapshots
        WHERE id < COALESCE((SELECT id FROM _graph_snapshots WHERE active LIMIT 1), 9223372036854775807)
        ORDER BY id DESC LIMIT 1`).
		Scan(&prev.ID, &prev.SourceTag, &prev.BuiltAt, &prev.NodeCount, &prev.EdgeCount, &prev.RoomCount)
	if errors.Is(err, sql.ErrNoRows) {
		return prev, ErrNoPrevious
	}
	if err != nil {
		return prev, err
	}
	if err := s.Activate(ctx, prev.ID); err != nil {
		return prev, err
	}
	prev.Active = true
	logger.L().Info("graph_snapshot_rollback", "id", prev.ID, "tag", prev.SourceTag)
	return prev, nil
}

// List: 最近的快照元数据，按 id 倒序
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_tag, built_at, node_count, edge_count, room_count, active
        FROM _graph_snapshots ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.ID, &sn.SourceTag, &sn.BuiltAt, &sn.NodeCount, &sn.EdgeCount, &sn.RoomCount, &sn.Active); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Prune: 保留最近 keepN 个快照，删除其余非 active 快照
func (s *Store) Prune(ctx context.Context, keepN int) (int64, error) {
	if keepN <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM _graph_snapshots
        WHERE NOT active AND id NOT IN (SELECT id FROM _graph_snapshots ORDER BY id DESC LIMIT $1)`, keepN)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
