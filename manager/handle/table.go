// Package handle 提供把小整数句柄映射到宿主资源的 arena。
package handle

import "sync"

// Handle 标识 Table 中的一个槽位，零值永远不会被分配。
//
// 低 24 位是槽位索引，高 8 位是代计数。槽位被回收后，旧句柄会被拒绝，
// 而不会指向之后放进该槽位的资源。
type Handle uint32

const (
	Invalid Handle = 0

	indexBits = 24
	indexMask = 1<<indexBits - 1
	maxSlots  = indexMask
)

func (h Handle) index() uint32 { return uint32(h) & indexMask }
func (h Handle) gen() uint8    { return uint8(uint32(h) >> indexBits) }

func makeHandle(index uint32, gen uint8) Handle {
	return Handle(uint32(gen)<<indexBits | index)
}

type slot[T any] struct {
	val  T
	gen  uint8
	live bool
}

// Table 是并发安全的资源 arena。被移除的槽位变为墓碑，复用时代计数加一。
type Table[T any] struct {
	mu       sync.RWMutex
	slots    []slot[T]
	free     []uint32
	reserved uint32
	live     int
}

// New 创建一个表，零索引之后的前 reserved 个索引不会被分配，
// 留给调用方作为表外的固定句柄。
func New[T any](reserved uint32) *Table[T] {
	return &Table[T]{
		// 索引 0 和保留区间永久是墓碑
		slots:    make([]slot[T], reserved+1),
		reserved: reserved,
	}
}

// IsReserved reports whether h falls in the reserved range.
func (t *Table[T]) IsReserved(h Handle) bool {
	i := h.index()
	return h.gen() == 0 && i >= 1 && i <= t.reserved
}

// Insert 存入 v 并返回句柄；表满时返回 Invalid。
func (t *Table[T]) Insert(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if len(t.slots) > maxSlots {
			return Invalid
		}
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}

	s := &t.slots[idx]
	s.val = v
	s.live = true
	t.live++
	return makeHandle(idx, s.gen)
}

// Get 返回 h 对应的值。墓碑、保留和过期句柄的 ok 为 false。
func (t *Table[T]) Get(h Handle) (v T, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.lookup(h)
	if !ok {
		return v, false
	}
	return s.val, true
}

// Remove 把 h 的槽位置为墓碑，并返回原来的值。
func (t *Table[T]) Remove(h Handle) (v T, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.lookup(h)
	if !ok {
		return v, false
	}
	v = s.val
	var zero T
	s.val = zero
	s.live = false
	s.gen++
	t.live--
	t.free = append(t.free, h.index())
	return v, true
}

func (t *Table[T]) lookup(h Handle) (*slot[T], bool) {
	i := h.index()
	if i <= t.reserved || int(i) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[i]
	if !s.live || s.gen != h.gen() {
		return nil, false
	}
	return s, true
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Range 对每个存活条目调用 f，直到 f 返回 false。f 内不能再调用本表。
func (t *Table[T]) Range(f func(h Handle, v T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := t.reserved + 1; int(i) < len(t.slots); i++ {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		if !f(makeHandle(i, s.gen), s.val) {
			return
		}
	}
}

// Drain 移除并返回所有存活条目。
func (t *Table[T]) Drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]T, 0, t.live)
	var zero T
	for i := t.reserved + 1; int(i) < len(t.slots); i++ {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		out = append(out, s.val)
		s.val = zero
		s.live = false
		s.gen++
		t.free = append(t.free, i)
	}
	t.live = 0
	return out
}
