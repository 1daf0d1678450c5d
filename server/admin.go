package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

func roomParam(r *http.Request) string {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = "room-1"
	}
	return roomID
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	roomID := roomParam(r)
	room := m.GetOrCreateRoom(roomID)

	type cfg struct {
		MaxInputsPerTick *int     `json:"maxInputsPerTick,omitempty"`
		SimulateDropProb *float64 `json:"simulateDropProb,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{
			"settings":    room.Settings(),
			"physics":     room.cfg.Physics,
			"playerCount": room.cfg.PlayerCount,
			"codec":       room.cfg.Codec,
		})
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxInputsPerTick != nil && *body.MaxInputsPerTick < 0 {
			http.Error(w, "maxInputsPerTick must not be negative", http.StatusBadRequest)
			return
		}
		if body.SimulateDropProb != nil && (*body.SimulateDropProb < 0 || *body.SimulateDropProb > 1) {
			http.Error(w, "simulateDropProb must be within [0,1]", http.StatusBadRequest)
			return
		}
		s := room.UpdateSettings(func(s *Settings) {
			if body.MaxInputsPerTick != nil {
				s.MaxInputsPerTick = *body.MaxInputsPerTick
			}
			if body.SimulateDropProb != nil {
				s.SimulateDropProb = *body.SimulateDropProb
			}
		})
		writeJSON(w, map[string]any{"ok": true, "settings": s})
		Log.Infof("config updated: room=%s maxInputsPerTick=%d drop=%.2f",
			roomID, s.MaxInputsPerTick, s.SimulateDropProb)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleAdminGravity 对指定玩家施加临时重力修正
// POST /admin/gravity?room=room-1&player=3&scale=0.2&seconds=2
func (m *RoomManager) HandleAdminGravity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	id, err := strconv.ParseUint(q.Get("player"), 10, 64)
	if err != nil {
		http.Error(w, "invalid player", http.StatusBadRequest)
		return
	}
	scale, err := strconv.ParseFloat(q.Get("scale"), 64)
	if err != nil {
		http.Error(w, "invalid scale", http.StatusBadRequest)
		return
	}
	secs, err := strconv.ParseFloat(q.Get("seconds"), 64)
	if err != nil || secs < 0 {
		http.Error(w, "invalid seconds", http.StatusBadRequest)
		return
	}
	room, ok := m.Room(roomParam(r))
	if !ok {
		http.Error(w, "unknown room", http.StatusNotFound)
		return
	}
	if _, ok := room.Registry().Resolve(ClientID(id)); !ok {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}
	room.RequestGravity(ClientID(id), scale, time.Duration(secs*float64(time.Second)))
	writeJSON(w, map[string]any{"ok": true})
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID := roomParam(r)
	room := m.GetOrCreateRoom(roomID)
	writeJSON(w, map[string]any{
		"room":    roomID,
		"tick":    room.TickSeq(),
		"players": room.Registry().Len(),
		"clients": room.Registry().IDs(),
		"spawned": room.SpawnCounter().Current(),
		"max":     room.SpawnCounter().Max(),
		"metrics": room.Metrics().Snapshot(),
	})
}
