// Package scheduler 提供按帧调用的回调调度器
//
// 宿主（例如 ebiten 的 Update）每帧调用一次 Tick，调度器依次调用已注册的回调。
// 回调可以在执行过程中注销自己或注册新回调，变更在下一次 Tick 生效。
package scheduler

import (
	"sort"
	"sync"
)

// Func 每帧回调，dt 为距上一帧的秒数
type Func func(dt float64)

type entry struct {
	fn    Func
	order int
}

// Scheduler 每帧回调调度器
// 并发安全：可以从任意 goroutine 注册与注销
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	next    int
}

// New 创建调度器
func New() *Scheduler {
	return &Scheduler{entries: make(map[string]*entry)}
}

// Schedule 以 key 注册回调，已存在时替换回调并保持原有顺序
func (s *Scheduler) Schedule(key string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.fn = fn
		return
	}
	s.entries[key] = &entry{fn: fn, order: s.next}
	s.next++
}

// Unschedule 注销回调，不存在时忽略
func (s *Scheduler) Unschedule(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// IsScheduled 检查 key 是否已注册
func (s *Scheduler) IsScheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Len 返回已注册回调数量
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Tick 按注册顺序调用所有回调
// 回调在锁外执行，因此回调内可以调用 Schedule/Unschedule
func (s *Scheduler) Tick(dt float64) {
	s.mu.Lock()
	snapshot := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		snapshot = append(snapshot, e)
	}
	s.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].order < snapshot[j].order
	})
	for _, e := range snapshot {
		s.mu.Lock()
		fn := e.fn
		s.mu.Unlock()
		fn(dt)
	}
}
