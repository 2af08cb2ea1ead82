// persistence/interface.go
package persistence

import (
	"github.com/wfunc/treasurehunt/models"
)

// Store 战绩存档接口。引擎本身是纯内存的；这里只做单向写入，
// 进程重启不从存档恢复任何房间状态。
type Store interface {
	SaveMatchRecord(record *models.MatchRecord) error
	Close() error
}

// NoopStore satisfies Store when the database is disabled in config.
type NoopStore struct{}

func (NoopStore) SaveMatchRecord(record *models.MatchRecord) error { return nil }
func (NoopStore) Close() error                                     { return nil }
