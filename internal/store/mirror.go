package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tyhnhzi/webchat/internal/metrics"
	"github.com/tyhnhzi/webchat/internal/models"
)

// Mirror 是 MongoDB 备份库。所有写入都是异步尽力而为：后台 goroutine 单次尝试，
// 失败只记日志和指标，永远不影响调用方，也不做任何修复或对账。
// Mirror 为 nil 时（未配置 MONGO_URI）所有方法都是空操作。
type Mirror struct {
	db *mongo.Database
}

const mirrorTimeout = 5 * time.Second

// ConnectMirror 连接备份库；调用方应把失败视为非致命。
func ConnectMirror(ctx context.Context, uri string) (*Mirror, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Mirror{db: cli.Database("webchat")}, nil
}

// Close 断开备份库连接。
func (m *Mirror) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.db.Client().Disconnect(ctx)
}

// do 在后台执行一次备份写入，失败仅记录。
func (m *Mirror) do(collection, op string, fn func(ctx context.Context, c *mongo.Collection) error) {
	if m == nil {
		return
	}
	c := m.db.Collection(collection)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := fn(ctx, c); err != nil {
			metrics.MirrorFailures.WithLabelValues(collection).Inc()
			log.Warn().Err(err).Str("collection", collection).Str("op", op).Msg("mirror write failed")
		}
	}()
}

// SaveMessage 备份一条消息。主库分配的 id 作为普通字段随文档保存，
// 供后续撤回的尽力更新按 id 匹配；_id 仍由 Mongo 自己分配。
func (m *Mirror) SaveMessage(msg models.Message) {
	m.do("messages", "insert", func(ctx context.Context, c *mongo.Collection) error {
		_, err := c.InsertOne(ctx, bson.M{
			"id":        msg.ID,
			"username":  msg.Username,
			"content":   msg.Content,
			"type":      msg.Type,
			"ip":        msg.IP,
			"timestamp": msg.Timestamp,
			"month":     msg.Month,
			"isDeleted": msg.IsDeleted,
			"duration":  msg.Duration,
			"fileSize":  msg.FileSize,
		})
		return err
	})
}

// RevokeMessage 尽力把撤回同步到备份库。
func (m *Mirror) RevokeMessage(id uint, username string, at time.Time) {
	m.do("messages", "revoke", func(ctx context.Context, c *mongo.Collection) error {
		_, err := c.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{
			"isDeleted": true,
			"deletedBy": username,
			"deletedAt": at,
		}})
		return err
	})
}

// SaveUser 按用户名 upsert 用户。
func (m *Mirror) SaveUser(user models.User) {
	m.do("users", "upsert", func(ctx context.Context, c *mongo.Collection) error {
		_, err := c.UpdateOne(ctx,
			bson.M{"username": user.Username},
			bson.M{"$set": bson.M{
				"username": user.Username,
				"ip":       user.IP,
				"joinedAt": user.JoinedAt,
			}},
			options.Update().SetUpsert(true))
		return err
	})
}

// SaveTempFile 备份一条临时文件登记。
func (m *Mirror) SaveTempFile(tf models.TempFile) {
	m.do("temp_files", "insert", func(ctx context.Context, c *mongo.Collection) error {
		_, err := c.InsertOne(ctx, bson.M{
			"filename":     tf.Filename,
			"originalName": tf.OriginalName,
			"fileType":     tf.FileType,
			"size":         tf.Size,
			"uploadedBy":   tf.UploadedBy,
			"expiresAt":    tf.ExpiresAt,
			"createdAt":    tf.CreatedAt,
		})
		return err
	})
}

// DeleteTempFile 尽力删除备份库中的登记记录。
func (m *Mirror) DeleteTempFile(filename string) {
	m.do("temp_files", "delete", func(ctx context.Context, c *mongo.Collection) error {
		_, err := c.DeleteOne(ctx, bson.M{"filename": filename})
		return err
	})
}

// SaveNotification 备份一条通知。
func (m *Mirror) SaveNotification(n models.Notification) {
	m.do("notifications", "insert", func(ctx context.Context, c *mongo.Collection) error {
		_, err := c.InsertOne(ctx, bson.M{
			"id":        n.ID,
			"username":  n.Username,
			"message":   n.Message,
			"type":      n.Type,
			"isRead":    n.IsRead,
			"createdAt": n.CreatedAt,
		})
		return err
	})
}

// MarkNotificationRead 尽力把已读状态同步到备份库。
func (m *Mirror) MarkNotificationRead(id uint) {
	m.do("notifications", "read", func(ctx context.Context, c *mongo.Collection) error {
		_, err := c.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"isRead": true}})
		return err
	})
}
