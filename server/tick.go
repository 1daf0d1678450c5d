package server

import "time"

const (
	// TicksPerSecond 默认世界推进频率（20 TPS）
	TicksPerSecond = 20
)

// StartTicker 启动房间的 Tick 循环（单线程推进世界）
func (r *Room) StartTicker() {
	if r.tickerStarted {
		return
	}
	r.tickerStarted = true
	tps := r.cfg.TicksPerSecond
	if tps <= 0 {
		tps = TicksPerSecond
	}
	interval := time.Second / time.Duration(tps)
	dt := interval.Seconds()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
			}
			// 核心循环：成员 → materialize → 输入 → 物理 → 同步 → 广播
			start := time.Now()
			r.Tick(dt)
			r.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}()
}

// Stop 结束 Tick 循环
func (r *Room) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}
