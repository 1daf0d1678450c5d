package server

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// Publisher 物理积分之后，把模拟位姿写回网络同步的权威状态
// 这是模拟 → 网络状态的唯一写入路径
type Publisher struct {
	query *donburi.Query
}

func NewPublisher() *Publisher {
	return &Publisher{query: donburi.NewQuery(filter.Contains(PlayerPosition, Transform))}
}

// Publish 无条件覆盖，返回同步的实体数
func (p *Publisher) Publish(w donburi.World) int {
	n := 0
	p.query.Each(w, func(e *donburi.Entry) {
		tf := Transform.Get(e)
		PlayerPosition.SetValue(e, PlayerPositionData{Translation: tf.Translation, Rotation: tf.Rotation})
		n++
	})
	return n
}
