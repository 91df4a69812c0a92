package store

import (
	"time"

	"github.com/tyhnhzi/webchat/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 打开 SQLite 主库。主库是唯一的权威存储：id 分配和所有读取都只发生在这里。
func Open(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// SQLite 单写者，连接池收紧避免 database is locked。
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return gdb, nil
}

// Migrate 自动迁移留言板涉及的全部表结构。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.Message{}, &models.User{}, &models.TempFile{}, &models.Notification{})
}

// Primary 封装对主库的全部读写。写入成功与否是消息可见性的唯一闸门。
type Primary struct {
	db *gorm.DB
}

func NewPrimary(db *gorm.DB) *Primary {
	return &Primary{db: db}
}

// CreateMessage 落库并取得主库分配的 id。
func (p *Primary) CreateMessage(msg *models.Message) error {
	return p.db.Create(msg).Error
}

// ListMessages 返回未撤回的消息，按时间倒序；month 为空时取最近 2000 条。
func (p *Primary) ListMessages(month string) ([]models.Message, error) {
	q := p.db.Where("is_deleted = ?", false)
	if month != "" {
		q = q.Where("month = ?", month).Order("timestamp desc")
	} else {
		q = q.Order("timestamp desc").Limit(2000)
	}
	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMonths 返回出现过的月份分组，每个分组恰好一次。
func (p *Primary) ListMonths() ([]string, error) {
	var months []string
	err := p.db.Model(&models.Message{}).
		Where("is_deleted = ?", false).
		Distinct("month").
		Order("month desc").
		Pluck("month", &months).Error
	if err != nil {
		return nil, err
	}
	return months, nil
}

// RevokeMessage 以单条条件更新完成鉴权与软删除，返回受影响行数。
// 行数为 0 说明消息不存在、不属于该用户、或已被撤回，三种情况都不产生任何变更。
func (p *Primary) RevokeMessage(id uint, username string, now time.Time) (int64, error) {
	res := p.db.Model(&models.Message{}).
		Where("id = ? AND username = ? AND is_deleted = ?", id, username, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_by": username,
			"deleted_at": now,
		})
	return res.RowsAffected, res.Error
}

// UpsertUser 按用户名幂等写入用户，重复加入只刷新 ip 和加入时间。
func (p *Primary) UpsertUser(username, ip string, now time.Time) error {
	var user models.User
	err := p.db.Where("username = ?", username).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return p.db.Create(&models.User{Username: username, IP: ip, JoinedAt: now, Status: "online"}).Error
	}
	if err != nil {
		return err
	}
	return p.db.Model(&user).Updates(map[string]interface{}{"ip": ip, "joined_at": now}).Error
}

func (p *Primary) GetUser(username string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *Primary) ListUsers() ([]models.User, error) {
	var users []models.User
	err := p.db.Select("username", "avatar", "status", "joined_at").
		Order("joined_at desc").Find(&users).Error
	return users, err
}

// UpdateProfile 更新资料字段，返回受影响行数（0 表示用户不存在）。
func (p *Primary) UpdateProfile(username, avatar, bio, status string) (int64, error) {
	res := p.db.Model(&models.User{}).Where("username = ?", username).
		Updates(map[string]interface{}{"avatar": avatar, "bio": bio, "status": status})
	return res.RowsAffected, res.Error
}

// CountMessagesBy 统计某用户未撤回的消息数。
func (p *Primary) CountMessagesBy(username string) (int64, error) {
	var count int64
	err := p.db.Model(&models.Message{}).
		Where("username = ? AND is_deleted = ?", username, false).
		Count(&count).Error
	return count, err
}

func (p *Primary) CreateTempFile(tf *models.TempFile) error {
	return p.db.Create(tf).Error
}

// ExpiredTempFiles 返回 expiresAt 已过期的登记记录，供清扫任务逐个处理。
func (p *Primary) ExpiredTempFiles(now time.Time) ([]models.TempFile, error) {
	var files []models.TempFile
	err := p.db.Where("expires_at < ?", now).Find(&files).Error
	return files, err
}

func (p *Primary) DeleteTempFile(filename string) error {
	return p.db.Where("filename = ?", filename).Delete(&models.TempFile{}).Error
}

func (p *Primary) CreateNotification(n *models.Notification) error {
	return p.db.Create(n).Error
}

// ListNotifications 返回最近 50 条通知，倒序。
func (p *Primary) ListNotifications(username string) ([]models.Notification, error) {
	var ns []models.Notification
	err := p.db.Where("username = ?", username).
		Order("created_at desc").Limit(50).Find(&ns).Error
	return ns, err
}

// MarkNotificationRead 单向置为已读；对已读通知重复调用不报错也无副作用。
func (p *Primary) MarkNotificationRead(id uint) error {
	return p.db.Model(&models.Notification{}).Where("id = ?", id).
		Update("is_read", true).Error
}
