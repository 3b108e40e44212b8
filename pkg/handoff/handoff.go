package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"albumscan/pkg/config"
	"albumscan/pkg/logger"
	"albumscan/pkg/models"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Take when no bundle exists for a key
var ErrNotFound = errors.New("handoff bundle not found")

// Bundle is the finished collection of one session
type Bundle struct {
	SessionID string                 `json:"session_id"`
	Reason    string                 `json:"reason"`
	SourceURL string                 `json:"source_url,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Assets    []models.CapturedAsset `json:"assets"`
}

// Store is the one-shot channel between the engine and the export stage.
// Take reads and clears a bundle.
type Store interface {
	Put(ctx context.Context, key string, b *Bundle) error
	Take(ctx context.Context, key string) (*Bundle, error)
}

// Lister is implemented by stores that can enumerate pending bundles
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// NewStore builds the store selected in cfg
func NewStore(cfg config.HandoffConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case config.HandoffRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, cfg.TTL, log), nil
	case config.HandoffFile, "":
		dir := cfg.Directory
		if dir == "" {
			dataDir, err := DataDirectory()
			if err != nil {
				return nil, fmt.Errorf("failed to get data directory: %w", err)
			}
			dir = dataDir
		}
		return NewFileStore(dir, log)
	default:
		return nil, fmt.Errorf("unknown handoff backend %q", cfg.Backend)
	}
}
