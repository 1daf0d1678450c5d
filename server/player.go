package server

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// 玩家颜色调色板，按加入顺序分配
var palette = []PlayerColorData{
	{RGB: [3]float64{0.90, 0.20, 0.20}},
	{RGB: [3]float64{0.20, 0.45, 0.90}},
	{RGB: [3]float64{0.20, 0.80, 0.30}},
	{RGB: [3]float64{0.95, 0.80, 0.15}},
	{RGB: [3]float64{0.70, 0.30, 0.85}},
	{RGB: [3]float64{0.10, 0.80, 0.80}},
}

func ColorFor(slot int) PlayerColorData {
	return palette[slot%len(palette)]
}

// SpawnPoint 出生点均匀分布在半径 radius 的圆上，离地 1 单位
func SpawnPoint(slot, total int, radius float64) mgl64.Vec3 {
	if total <= 0 {
		total = 1
	}
	a := 2 * math.Pi * float64(slot) / float64(total)
	return mgl64.Vec3{radius * math.Cos(a), 1, radius * math.Sin(a)}
}

// PlayerState 为广播给客户端的轻量状态
type PlayerState struct {
	ID    uint64     `json:"id" msgpack:"id"`
	X     float64    `json:"x" msgpack:"x"`
	Y     float64    `json:"y" msgpack:"y"`
	Z     float64    `json:"z" msgpack:"z"`
	QW    float64    `json:"qw" msgpack:"qw"`
	QX    float64    `json:"qx" msgpack:"qx"`
	QY    float64    `json:"qy" msgpack:"qy"`
	QZ    float64    `json:"qz" msgpack:"qz"`
	Color [3]float64 `json:"color" msgpack:"color"`
}

// Player 房间内的连接信息；模拟状态保存在 ECS 实体上
type Player struct {
	ID      ClientID
	Session string
	Slot    int
	Conn    *ClientConn // 网络连接的发送端（写协程）

	lastSeq    int64
	tickInputs int
}
