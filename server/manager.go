package server

import "sync"

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu    sync.RWMutex
	cfg   RoomConfig
	rooms map[string]*Room
}

var (
	defaultManager *RoomManager
	once           sync.Once
)

// NewRoomManager 新建管理器，所有房间共用同一份房间配置
func NewRoomManager(cfg RoomConfig) *RoomManager {
	return &RoomManager{cfg: cfg, rooms: make(map[string]*Room)}
}

// InitRoomManager 以给定配置初始化单例，只有第一次调用生效
func InitRoomManager(cfg RoomConfig) *RoomManager {
	once.Do(func() {
		defaultManager = NewRoomManager(cfg)
	})
	return defaultManager
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		r = NewRoom(id, m.cfg)
		m.rooms[id] = r
		r.StartTicker()
	}
	return r
}

// Room 查找已存在的房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// StopAll 停止所有房间的 Tick
func (m *RoomManager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		r.Stop()
	}
}
