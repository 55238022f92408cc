package storage

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogUnit commit middleware, logs every commit and keeps commit stats
type LogUnit struct {
	mu         sync.Mutex
	commits    int
	failures   int
	lastCommit time.Time

	sugar *zap.SugaredLogger
}

func NewLogUnit(logger *zap.Logger) *LogUnit {
	return &LogUnit{sugar: logger.Sugar()}
}

func (u *LogUnit) String() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fmt.Sprintf("commits=%d failures=%d last=%s",
		u.commits, u.failures, u.lastCommit.Format(time.RFC3339))
}

// Commits number of successful commits
func (u *LogUnit) Commits() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.commits
}

// Failures number of failed commits
func (u *LogUnit) Failures() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.failures
}

func (u *LogUnit) CommitMiddleware(next CommitHandler) CommitHandler {
	return CommitHandlerFunc(func(store Storager) error {
		if next == nil {
			return nil
		}
		start := time.Now()
		err := next.Commit(store)

		u.mu.Lock()
		defer u.mu.Unlock()
		if err != nil {
			u.failures++
			u.sugar.Errorw("commit", "size", store.Size(), "err", err)
			return err
		}
		u.commits++
		u.lastCommit = start
		u.sugar.Debugw("commit", "size", store.Size(), "elapsed", time.Since(start))
		return nil
	})
}
