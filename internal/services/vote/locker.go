package vote

import (
	"hash/fnv"
	"sync"
)

// stripedLock 按用户 ID 分片的互斥锁，同一用户的投票串行执行
type stripedLock struct {
	stripes []sync.Mutex
}

func newStripedLock(n int) *stripedLock {
	if n <= 0 {
		n = 256
	}
	return &stripedLock{stripes: make([]sync.Mutex, n)}
}

func (l *stripedLock) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
