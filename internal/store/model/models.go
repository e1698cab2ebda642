package model

import "gorm.io/datatypes"

// BrokerLinkModel 持久化用户与券商的绑定关系。
// is_primary 的唯一性由写入方在事务内维护：置主时清掉同用户其他主链接。
type BrokerLinkModel struct {
	ID              int64          `gorm:"column:id;primaryKey"`
	LinkID          string         `gorm:"column:link_id;uniqueIndex"`
	UserID          string         `gorm:"column:user_id;index:idx_broker_links_user"`
	Broker          string         `gorm:"column:broker"`
	Status          string         `gorm:"column:status"`
	Primary         bool           `gorm:"column:is_primary"`
	AvailableMargin float64        `gorm:"column:available_margin"`
	MetaJSON        datatypes.JSON `gorm:"column:meta_json;type:TEXT"`
	CreatedAtUnix   int64          `gorm:"column:created_at"`
	UpdatedAtUnix   int64          `gorm:"column:updated_at"`
}

func (BrokerLinkModel) TableName() string { return "broker_links" }

// SubscriptionModel 持久化账户订阅，单用户一行。
type SubscriptionModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	UserID        string `gorm:"column:user_id;uniqueIndex"`
	Tier          string `gorm:"column:tier"`
	ExpiresAtUnix int64  `gorm:"column:expires_at"` // 0 表示长期有效
	CreatedAtUnix int64  `gorm:"column:created_at"`
	UpdatedAtUnix int64  `gorm:"column:updated_at"`
}

func (SubscriptionModel) TableName() string { return "subscriptions" }
