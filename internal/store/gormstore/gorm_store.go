// Package gormstore implements the subscription and broker directory on
// Gorm + SQLite. The pipeline consumes it read-only; the maintenance CLI
// writes through the Upsert helpers.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/secira/TargetCapital-sub000/internal/account"
	"github.com/secira/TargetCapital-sub000/internal/store/model"
)

// Store 基于 Gorm + SQLite 实现订阅与券商目录。
type Store struct {
	db       *gorm.DB
	baseTier string
	now      func() time.Time
}

var (
	_ account.SubscriptionSource = (*Store)(nil)
	_ account.BrokerDirectory    = (*Store)(nil)
)

// New 打开（必要时创建）目录数据库。baseTier 是订阅缺失或过期时
// 回落的等级。
func New(path, baseTier string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 账户目录路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.BrokerLinkModel{}, &model.SubscriptionModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent
	// reads while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)

	baseTier = strings.ToLower(strings.TrimSpace(baseTier))
	if baseTier == "" {
		baseTier = "free"
	}
	return &Store{db: db, baseTier: baseTier, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---------------------------- 订阅查询 ----------------------------

// TierFor 实现 account.SubscriptionSource。无订阅记录或订阅已过期
// 时回落基础档，不报错。
func (s *Store) TierFor(ctx context.Context, userID string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("account store not initialized")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	var row model.SubscriptionModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.baseTier, nil
	case err != nil:
		return "", err
	}
	if row.ExpiresAtUnix > 0 && s.now().Unix() > row.ExpiresAtUnix {
		return s.baseTier, nil
	}
	tier := strings.ToLower(strings.TrimSpace(row.Tier))
	if tier == "" {
		return s.baseTier, nil
	}
	return tier, nil
}

// GetSubscription 返回原始订阅记录（不做过期折算），供维护 CLI 展示。
func (s *Store) GetSubscription(ctx context.Context, userID string) (account.Subscription, error) {
	var row model.SubscriptionModel
	err := s.db.WithContext(ctx).Where("user_id = ?", strings.TrimSpace(userID)).First(&row).Error
	if err != nil {
		return account.Subscription{}, err
	}
	sub := account.Subscription{
		UserID: row.UserID,
		Tier:   strings.ToLower(strings.TrimSpace(row.Tier)),
	}
	if row.ExpiresAtUnix > 0 {
		sub.ExpiresAt = time.Unix(row.ExpiresAtUnix, 0)
	}
	return sub, nil
}

// UpsertSubscription 写入或更新账户订阅。expiresAt 为零值表示长期有效。
func (s *Store) UpsertSubscription(ctx context.Context, userID, tier string, expiresAt time.Time) error {
	userID = strings.TrimSpace(userID)
	tier = strings.ToLower(strings.TrimSpace(tier))
	if userID == "" || tier == "" {
		return fmt.Errorf("user id and tier cannot be empty")
	}
	now := s.now().Unix()
	row := model.SubscriptionModel{
		UserID:        userID,
		Tier:          tier,
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	if !expiresAt.IsZero() {
		row.ExpiresAtUnix = expiresAt.Unix()
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"tier":       row.Tier,
				"expires_at": row.ExpiresAtUnix,
				"updated_at": now,
			}),
		}).
		Create(&row).Error
}

// ---------------------------- 券商目录 ----------------------------

// BrokerLink 描述一条写入目录的券商绑定。
type BrokerLink struct {
	LinkID          string
	UserID          string
	Broker          string
	Status          account.LinkStatus
	Primary         bool
	AvailableMargin float64
	Meta            map[string]any
}

// PrimaryBroker 实现 account.BrokerDirectory。零个或多个 primary
// 通过哨兵错误上抛，由调用方折算成用户可见的失败。
func (s *Store) PrimaryBroker(ctx context.Context, userID string) (account.BrokerSnapshot, error) {
	if s == nil || s.db == nil {
		return account.BrokerSnapshot{}, fmt.Errorf("account store not initialized")
	}
	var rows []model.BrokerLinkModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_primary = ?", strings.TrimSpace(userID), true).
		Find(&rows).Error
	if err != nil {
		return account.BrokerSnapshot{}, err
	}
	switch {
	case len(rows) == 0:
		return account.BrokerSnapshot{}, account.ErrNoPrimary
	case len(rows) > 1:
		return account.BrokerSnapshot{}, fmt.Errorf("%w: found %d", account.ErrAmbiguousPrimary, len(rows))
	}
	row := rows[0]
	return account.BrokerSnapshot{
		ID:              row.LinkID,
		Name:            row.Broker,
		Status:          account.LinkStatus(strings.ToLower(strings.TrimSpace(row.Status))),
		AvailableMargin: row.AvailableMargin,
		FetchedAt:       s.now(),
	}, nil
}

// UpsertBrokerLink 写入或更新券商绑定。置主时在同一事务内清掉该
// 用户的其他主链接，维持"恰好一个 primary"的目录不变量。
func (s *Store) UpsertBrokerLink(ctx context.Context, link BrokerLink) (string, error) {
	link.UserID = strings.TrimSpace(link.UserID)
	link.Broker = strings.ToLower(strings.TrimSpace(link.Broker))
	if link.UserID == "" || link.Broker == "" {
		return "", fmt.Errorf("user id and broker cannot be empty")
	}
	if strings.TrimSpace(link.LinkID) == "" {
		link.LinkID = uuid.NewString()
	}
	if link.Status == "" {
		link.Status = account.StatusPending
	}

	var meta datatypes.JSON
	if len(link.Meta) > 0 {
		raw, err := json.Marshal(link.Meta)
		if err != nil {
			return "", fmt.Errorf("marshal link meta: %w", err)
		}
		meta = datatypes.JSON(raw)
	}

	now := s.now().Unix()
	row := model.BrokerLinkModel{
		LinkID:          link.LinkID,
		UserID:          link.UserID,
		Broker:          link.Broker,
		Status:          string(link.Status),
		Primary:         link.Primary,
		AvailableMargin: link.AvailableMargin,
		MetaJSON:        meta,
		CreatedAtUnix:   now,
		UpdatedAtUnix:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if link.Primary {
			if err := tx.Model(&model.BrokerLinkModel{}).
				Where("user_id = ? AND link_id <> ?", link.UserID, link.LinkID).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "link_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"broker":           row.Broker,
				"status":           row.Status,
				"is_primary":       row.Primary,
				"available_margin": row.AvailableMargin,
				"meta_json":        row.MetaJSON,
				"updated_at":       now,
			}),
		}).Create(&row).Error
	})
	if err != nil {
		return "", err
	}
	return link.LinkID, nil
}

// SetBrokerStatus 更新链接的连接状态。
func (s *Store) SetBrokerStatus(ctx context.Context, linkID string, status account.LinkStatus) error {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return fmt.Errorf("link id cannot be empty")
	}
	res := s.db.WithContext(ctx).Model(&model.BrokerLinkModel{}).
		Where("link_id = ?", linkID).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": s.now().Unix(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("broker link not found: %s", linkID)
	}
	return nil
}

// ListBrokerLinks 返回用户的全部券商绑定，主链接排前。
func (s *Store) ListBrokerLinks(ctx context.Context, userID string) ([]BrokerLink, error) {
	var rows []model.BrokerLinkModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("is_primary DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]BrokerLink, 0, len(rows))
	for _, row := range rows {
		link := BrokerLink{
			LinkID:          row.LinkID,
			UserID:          row.UserID,
			Broker:          row.Broker,
			Status:          account.LinkStatus(row.Status),
			Primary:         row.Primary,
			AvailableMargin: row.AvailableMargin,
		}
		if len(row.MetaJSON) > 0 {
			meta := make(map[string]any)
			if err := json.Unmarshal(row.MetaJSON, &meta); err == nil {
				link.Meta = meta
			}
		}
		out = append(out, link)
	}
	return out, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
