package xsnowflake

import "fmt"

// NextIDs 批量生成 count 个 ID，按发号顺序返回。
//
// 结果与在同一 goroutine 中连续调用 count 次 NextID 完全一致（相同配置、相同时钟轨迹），
// 但整批只获取一次锁，并且每个毫秒只读取一次时钟：
// 拿到本毫秒的第一个 ID 后，同一毫秒内剩余的序列号只需整数递增即可得到。
//
// 跨越多个毫秒时，每个新毫秒都重新走一遍单 ID 算法，包括回拨检测和耗尽等待。
// 任一毫秒失败则整批失败，返回 nil；失败前已提交的序列号不会再被使用。
func (g *Generator) NextIDs(count int) ([]int64, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}

	ids := make([]int64, 0, count)

	g.mu.Lock()
	defer g.mu.Unlock()

	for len(ids) < count {
		first, err := g.nextLocked()
		if err != nil {
			return nil, err
		}

		// 当前毫秒内从 first 起还能连续使用的 ID 数（含 first）
		available := g.layout.MaxSequence - g.sequence + 1
		n := min(available, int64(count-len(ids)))
		for i := range n {
			ids = append(ids, first+i)
		}

		// nextLocked 已把 sequence 推进到 first 对应的值，
		// 这里只需再推进 n-1，使状态与逐个调用 NextID 后一致
		g.sequence += n - 1
		g.currentID = first + n - 1
		g.stats.issued.Add(uint64(n))
	}

	g.stats.batches.Add(1)
	return ids, nil
}
