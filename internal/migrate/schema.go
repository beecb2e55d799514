package migrate

import (
	"database/sql"

	"campus-nav/internal/logger"
)

// 背景：首次运行自动创建图快照表与索引
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；同一时刻至多一个 active 快照（部分唯一索引保证）
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _graph_snapshots (
            id BIGSERIAL PRIMARY KEY,
            source_tag TEXT NOT NULL,
            built_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            node_count INT NOT NULL,
            edge_count INT NOT NULL,
            room_count INT NOT NULL,
            graph JSONB NOT NULL,
            buildings JSONB NOT NULL,
            active BOOLEAN NOT NULL DEFAULT false
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_graph_active ON _graph_snapshots(active) WHERE active`,
		`CREATE INDEX IF NOT EXISTS idx_graph_built ON _graph_snapshots(built_at DESC)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
