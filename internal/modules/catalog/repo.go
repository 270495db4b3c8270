package catalog

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const cacheTTL = 5 * time.Minute

// Repo reads products, with an optional Redis read-through cache in front
// of the primary rows. A nil client disables caching entirely.
type Repo struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewRepo(db *gorm.DB, cache *redis.Client) *Repo {
	return &Repo{db: db, cache: cache}
}

func cacheKey(id string) string { return "product:" + id }

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, cacheKey(id)).Bytes()
		if err == nil {
			var p Product
			if uerr := json.Unmarshal(raw, &p); uerr == nil {
				return p, nil
			}
		} else if err != redis.Nil {
			log.Printf("catalog: cache get failed for %s: %v", id, err)
		}
	}

	var p Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return Product{}, err
	}

	if r.cache != nil {
		if raw, err := json.Marshal(p); err == nil {
			if err := r.cache.Set(ctx, cacheKey(id), raw, cacheTTL).Err(); err != nil {
				log.Printf("catalog: cache set failed for %s: %v", id, err)
			}
		}
	}
	return p, nil
}

func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	var items []Product
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&items).Error
	return items, err
}

// Invalidate drops the cached copy after a stock or price mutation.
func (r *Repo) Invalidate(ctx context.Context, ids ...string) {
	if r.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}
	if err := r.cache.Del(ctx, keys...).Err(); err != nil {
		log.Printf("catalog: cache invalidate failed: %v", err)
	}
}
