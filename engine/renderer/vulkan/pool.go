package vulkan

import "sync"

type LockGroup string

const (
	MemoryManagement      LockGroup = "memory_management"
	PipelineManagement    LockGroup = "pipeline_management"
	DescriptorManagement  LockGroup = "descriptor_management"
	CommandPoolManagement LockGroup = "command_pool_management"
)

// LockPool hands out one mutex per resource group and one per queue family.
// Vulkan requires external synchronization for command pools, queues and
// descriptor pools; every access to those goes through SafeCall or
// SafeQueueCall.
type LockPool struct {
	mu    sync.Mutex // protects the maps
	locks map[LockGroup]*sync.Mutex

	queueMutexes map[uint32]*sync.Mutex // queue family index as key
}

func NewLockPool() *LockPool {
	return &LockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (lp *LockPool) groupLock(group LockGroup) *sync.Mutex {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	l, ok := lp.locks[group]
	if !ok {
		l = &sync.Mutex{}
		lp.locks[group] = l
	}
	return l
}

func (lp *LockPool) queueLock(index uint32) *sync.Mutex {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	l, ok := lp.queueMutexes[index]
	if !ok {
		l = &sync.Mutex{}
		lp.queueMutexes[index] = l
	}
	return l
}

// SafeCall runs fn while holding the group's mutex. The map lock is released
// before fn runs, so fn may take another group's lock.
func (lp *LockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lp.groupLock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

func (lp *LockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	l := lp.queueLock(queueFamilyIndex)
	l.Lock()
	defer l.Unlock()

	return fn()
}
