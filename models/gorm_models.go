// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormMatchRecord 对应 match_records 表；玩家战绩整体存成 jsonb
type GormMatchRecord struct {
	gorm.Model
	RoomID   string `gorm:"index;not null"`
	RoomName string `gorm:"not null"`
	Outcome  string `gorm:"not null"`
	TimeUsed int    `gorm:"default:0"`
	Players  string `gorm:"type:jsonb;not null"`
}
