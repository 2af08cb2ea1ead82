// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task 一项定时任务；Interval > 0 表示周期执行
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager 基于最小堆的定时器，驱动每个已开局房间的秒级 tick。
// 100ms 扫描一次到期任务，对秒级倒计时足够精确。
type Manager struct {
	queue   taskQueue
	mutex   sync.Mutex
	nextID  int64
	stopCh  chan struct{}
	stopped sync.Once
}

func NewManager() *Manager {
	m := &Manager{
		queue:  make(taskQueue, 0),
		nextID: 1,
		stopCh: make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.run()
	return m
}

// Schedule registers a callback fired after delay, then every interval
// if interval > 0. Returns a handle for Cancel.
func (m *Manager) Schedule(delay, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		ID:       m.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, task)
	return task.ID
}

// Cancel removes a scheduled task; unknown ids are ignored.
func (m *Manager) Cancel(taskID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.ID == taskID {
			heap.Remove(&m.queue, i)
			break
		}
	}
}

// Stop shuts down the scan loop. Pending tasks never fire afterwards.
func (m *Manager) Stop() {
	m.stopped.Do(func() {
		close(m.stopCh)
	})
}

func (m *Manager) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.fireDue()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) fireDue() {
	now := time.Now()

	m.mutex.Lock()
	var due []*Task
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}
		heap.Pop(&m.queue)
		due = append(due, task)

		if task.Interval > 0 {
			next := *task
			next.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, &next)
		}
	}
	m.mutex.Unlock()

	// 回调在锁外执行，任务里可以再调 Schedule/Cancel
	for _, task := range due {
		go task.Callback()
	}
}
