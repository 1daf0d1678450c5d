package server

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// StateFrame 每个 Tick 广播的快照
type StateFrame struct {
	Type    string        `json:"type" msgpack:"type"`
	Tick    int64         `json:"tick" msgpack:"tick"`
	Time    float64       `json:"time" msgpack:"time"`
	Players []PlayerState `json:"players" msgpack:"players"`
}

// WelcomeFrame 加入成功后发送给该客户端
type WelcomeFrame struct {
	Type    string     `json:"type" msgpack:"type"`
	ID      uint64     `json:"id" msgpack:"id"`
	Session string     `json:"session" msgpack:"session"`
	Radius  float64    `json:"radius" msgpack:"radius"`
	Color   [3]float64 `json:"color" msgpack:"color"`
}

// NoticeFrame 简单通知，如 {"type":"full"}
type NoticeFrame struct {
	Type string `json:"type" msgpack:"type"`
}

// Encode 按编码方式序列化，返回数据与 WebSocket 消息类型
func Encode(codec string, v any) ([]byte, int, error) {
	switch codec {
	case CodecMsgpack:
		b, err := msgpack.Marshal(v)
		return b, websocket.BinaryMessage, err
	case CodecJSON, "":
		b, err := json.Marshal(v)
		return b, websocket.TextMessage, err
	default:
		return nil, 0, fmt.Errorf("unknown codec %q", codec)
	}
}
