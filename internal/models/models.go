package models

import "time"

// Message 是留言板的核心记录，主键 id 由主库（SQLite）分配，单调且不复用。
// JSON 字段名保持与前端约定的 camelCase 一致。
type Message struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"size:64;not null;index" json:"username"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Type      string     `gorm:"size:16;not null;default:text" json:"type"`
	IP        string     `gorm:"size:64;not null" json:"ip"`
	Timestamp time.Time  `gorm:"index" json:"timestamp"`
	Month     string     `gorm:"size:32;not null;index" json:"month"`
	IsDeleted bool       `gorm:"not null;default:false" json:"isDeleted"`
	DeletedBy string     `gorm:"size:64" json:"deletedBy,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	Duration  int        `json:"duration,omitempty"`
	FileSize  int64      `json:"fileSize,omitempty"`
}

// 消息媒体类型。
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeVideo = "video"
	TypeVoice = "voice"
)

// User 以用户名为自然键，加入时幂等 upsert。
type User struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	Username string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	IP       string    `gorm:"size:64;not null" json:"ip"`
	JoinedAt time.Time `json:"joinedAt"`
	Avatar   string    `gorm:"type:text" json:"avatar,omitempty"`
	Bio      string    `gorm:"type:text" json:"bio,omitempty"`
	Status   string    `gorm:"size:16;default:online" json:"status"`
}

// TempFile 登记一个带 TTL 的上传文件，到期后由清扫任务连同磁盘文件一起删除。
// 没有任何续期机制。
type TempFile struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Filename     string    `gorm:"size:255;not null;index" json:"filename"`
	OriginalName string    `gorm:"size:255;not null" json:"originalName"`
	FileType     string    `gorm:"size:128;not null" json:"fileType"`
	Size         int64     `json:"size"`
	UploadedBy   string    `gorm:"size:64;not null" json:"uploadedBy"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notification 是站内通知，isRead 只会从 false 单向翻转为 true。
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;not null;index" json:"username"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Type      string    `gorm:"size:16;not null;default:info" json:"type"`
	IsRead    bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
