// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/treasurehunt/models"
)

// PostgreSQL 基于 database/sql 的存档实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 存档连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(16) NOT NULL,
            room_name VARCHAR(255) NOT NULL,
            outcome VARCHAR(16) NOT NULL,
            time_used INT NOT NULL DEFAULT 0,
            players JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

// SaveMatchRecord 写入一条战绩
func (p *PostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return fmt.Errorf("marshal match players: %w", err)
	}

	_, err = p.db.Exec(`
        INSERT INTO match_records (room_id, room_name, outcome, time_used, players)
        VALUES ($1, $2, $3, $4, $5)`,
		record.RoomID, record.RoomName, record.Outcome, record.TimeUsed, players,
	)
	return err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
