package server

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/yohamta/donburi"
)

// ClientID 网络层为每个连接分配的数字标识
type ClientID uint64

// Registry 客户端 → 玩家实体 的映射
// 读多写少：输入处理、管理接口并发读取；加入/离开时单写
type Registry struct {
	mu      deadlock.RWMutex
	players map[ClientID]donburi.Entity
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[ClientID]donburi.Entity)}
}

// Register 绑定（或覆盖）客户端对应的实体
func (r *Registry) Register(id ClientID, e donburi.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[id] = e
}

func (r *Registry) Unregister(id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
}

// Resolve 未注册时返回 false，调用方应静默跳过
func (r *Registry) Resolve(id ClientID) (donburi.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.players[id]
	return e, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// IDs 返回当前已注册客户端的快照
func (r *Registry) IDs() []ClientID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ClientID, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	return ids
}
