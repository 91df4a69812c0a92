// Package tempfile 管理带 TTL 的上传文件：上传时登记，到期由后台清扫任务
// 删除磁盘文件和两个库里的登记记录。没有续期机制。
package tempfile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tyhnhzi/webchat/internal/metrics"
	"github.com/tyhnhzi/webchat/internal/models"
	"github.com/tyhnhzi/webchat/internal/store"
)

type Store struct {
	primary *store.Primary
	mirror  *store.Mirror
	dir     string
	ttl     time.Duration
}

func NewStore(primary *store.Primary, mirror *store.Mirror, dir string, ttl time.Duration) *Store {
	return &Store{primary: primary, mirror: mirror, dir: dir, ttl: ttl}
}

// Dir 返回文件所在目录，供静态路由挂载。
func (s *Store) Dir() string { return s.dir }

// Register 登记一个已经写入磁盘的上传文件，expiresAt = now + TTL。
func (s *Store) Register(filename, originalName, fileType string, size int64, uploadedBy string, now time.Time) (*models.TempFile, error) {
	tf := models.TempFile{
		Filename:     filename,
		OriginalName: originalName,
		FileType:     fileType,
		Size:         size,
		UploadedBy:   uploadedBy,
		ExpiresAt:    now.Add(s.ttl),
		CreatedAt:    now,
	}
	if err := s.primary.CreateTempFile(&tf); err != nil {
		return nil, err
	}
	s.mirror.SaveTempFile(tf)
	return &tf, nil
}

// SweepOnce 执行一轮清扫：删磁盘文件、删主库记录、尽力删备份记录。
// 单个文件的失败只记日志，不中断整批；文件已不在磁盘上不算失败。
func (s *Store) SweepOnce(now time.Time) int {
	files, err := s.primary.ExpiredTempFiles(now)
	if err != nil {
		log.Error().Err(err).Msg("sweep query expired files")
		return 0
	}
	removed := 0
	for _, f := range files {
		path := filepath.Join(s.dir, f.Filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("filename", f.Filename).Msg("sweep remove blob")
		}
		if err := s.primary.DeleteTempFile(f.Filename); err != nil {
			log.Warn().Err(err).Str("filename", f.Filename).Msg("sweep delete record")
			continue
		}
		s.mirror.DeleteTempFile(f.Filename)
		metrics.SweptFiles.Inc()
		removed++
		log.Info().Str("filename", f.Filename).Msg("expired file deleted")
	}
	return removed
}

// Sweep 以固定间隔运行清扫，直到 ctx 取消。在 main 里作为独立 goroutine 启动，
// 与消息接入路径之间不共享任何锁。
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("temp file sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("temp file sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(time.Now())
		}
	}
}
