package server

import (
	"encoding/json"
	"errors"
	"strings"
)

// 入站输入的 JSON 结构（WebSocket 文本消息）
// 示例：{"type":"input","seq":7,"direction":{"forward":true,"left":true}}
//
//	{"type":"input","seq":8,"other":"brake"}
type InputMessage struct {
	Type      string     `json:"type"`
	Seq       int64      `json:"seq,omitempty"`
	Direction *Direction `json:"direction,omitempty"`
	Other     string     `json:"other,omitempty"`
}

var errNotInput = errors.New("not an input message")

// ParseInput 将客户端消息转换为 InputEvent；既无方向也无其它载荷时 Input 为 nil
func ParseInput(from ClientID, payload []byte) (InputEvent, error) {
	var im InputMessage
	if err := json.Unmarshal(payload, &im); err != nil {
		return InputEvent{}, err
	}
	if strings.ToLower(im.Type) != "input" {
		return InputEvent{}, errNotInput
	}
	ev := InputEvent{From: from, Seq: im.Seq}
	switch {
	case im.Direction != nil:
		ev.Input = *im.Direction
	case im.Other != "":
		ev.Input = OtherInput{Kind: im.Other}
	}
	return ev, nil
}
