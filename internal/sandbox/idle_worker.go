package sandbox

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/linechime/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// StartIdleWorker closes sessions whose idle deadline in the session_idle
// sorted set has passed. Without Redis it falls back to the manager's
// in-memory expiry checker.
func StartIdleWorker(ctx context.Context, rdb *redis.Client, cfg *config.Config, mgr *Manager) {
	if cfg == nil || mgr == nil {
		log.Println("[IDLE] Config or manager missing; idle worker not started")
		return
	}
	poll := time.Duration(cfg.IdleWorkerPollSeconds) * time.Second
	if poll <= 0 {
		poll = 15 * time.Second
	}
	if rdb == nil {
		log.Println("[IDLE] Redis missing; using in-memory expiry checker")
		go mgr.StartExpiryChecker(ctx, poll)
		return
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				reapIdle(ctx, rdb, mgr, time.Now())
			}
		}
	}()
}

func reapIdle(ctx context.Context, rdb *redis.Client, mgr *Manager, now time.Time) {
	members, err := rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle sessions: %v", err)
		return
	}
	for _, id := range members {
		// ZRem decides which worker owns the member when several run.
		if removed, _ := rdb.ZRem(ctx, IdleSetKey, id).Result(); removed == 0 {
			continue
		}
		last, _ := rdb.Get(ctx, lastActiveKey(id)).Result()
		lastTs, _ := strconv.ParseInt(last, 10, 64)
		if lastTs > 0 && now.Sub(time.Unix(lastTs, 0)) < mgr.idleTimeout() {
			continue
		}
		if err := mgr.Close(id, "idle"); err != nil {
			// Owned by another process or already gone.
			continue
		}
		log.Printf("[IDLE] Closed idle session=%s last_active=%d", id, lastTs)
	}
}
