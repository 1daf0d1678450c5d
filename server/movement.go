package server

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

const (
	// TorqueMultiplier 单次方向输入施加的扭矩系数（左右为两倍）
	TorqueMultiplier = 0.1
	// MaxTorque 扭矩模长上限
	MaxTorque = 10.0
	// TouchWindow 上次接触后允许操控的时长（模拟秒）
	TouchWindow = 1.0

	minSpeed = 1e-6
)

var (
	Up = mgl64.Vec3{0, 1, 0}
	// DefaultHeading 静止时使用的参考方向
	DefaultHeading = mgl64.Vec3{0, 0, 1}

	quarterTurn = mgl64.QuatRotate(math.Pi*0.5, Up)
)

// Inputs 客户端输入载荷：Direction 或其它非方向类输入
type Inputs interface {
	isInputs()
}

// Direction 方向键状态，可同时按下多个
type Direction struct {
	Forward bool `json:"forward" msgpack:"forward"`
	Back    bool `json:"back" msgpack:"back"`
	Left    bool `json:"left" msgpack:"left"`
	Right   bool `json:"right" msgpack:"right"`
	Reset   bool `json:"reset" msgpack:"reset"`
}

// OtherInput 非方向类输入，会清零扭矩
type OtherInput struct {
	Kind string
}

func (Direction) isInputs()  {}
func (OtherInput) isInputs() {}

// InputEvent 一次入站输入；Input 为 nil 表示无载荷
type InputEvent struct {
	From  ClientID
	Seq   int64
	Input Inputs
}

// GateOpen 由接触时间推导的门控，每次都重新计算，不缓存状态
func GateOpen(now float64, last LastTouchedTimeData) bool {
	return now-last.Time < TouchWindow || last.Sticky
}

// Translator 将输入翻译为扭矩
type Translator struct {
	registry *Registry
}

func NewTranslator(registry *Registry) *Translator {
	return &Translator{registry: registry}
}

// Apply 处理本 Tick 的输入事件，返回实际生效的数量
func (t *Translator) Apply(w donburi.World, events []InputEvent, now float64) int {
	applied := 0
	for _, ev := range events {
		if ev.Input == nil {
			continue
		}
		ent, ok := t.registry.Resolve(ev.From)
		if !ok || !w.Valid(ent) {
			continue
		}
		e := w.Entry(ent)
		if !e.HasComponent(Velocity) || !e.HasComponent(ExternalForce) || !e.HasComponent(LastTouchedTime) {
			continue
		}
		if !GateOpen(now, LastTouchedTime.GetValue(e)) {
			continue
		}
		ApplyMovement(Velocity.Get(e), ExternalForce.Get(e), ev.Input)
		applied++
	}
	return applied
}

// ApplyMovement 扭矩在 Tick 之间累加，仅由 clamp 限制
func ApplyMovement(vel *VelocityData, force *ExternalForceData, in Inputs) {
	dir, ok := in.(Direction)
	if !ok {
		force.Torque = mgl64.Vec3{}
		return
	}

	heading := headingOf(vel.Linear)
	forward := Up.Cross(heading)
	if forward.Len() < minSpeed {
		forward = Up.Cross(DefaultHeading)
	}
	forward = forward.Normalize()
	side := Up.Cross(quarterTurn.Rotate(heading))

	if dir.Forward {
		force.Torque = clampLength(force.Torque.Add(forward.Mul(TorqueMultiplier)), MaxTorque)
	}
	if dir.Back {
		force.Torque = clampLength(force.Torque.Sub(forward.Mul(TorqueMultiplier)), MaxTorque)
	}
	if dir.Left {
		force.Torque = clampLength(force.Torque.Add(side.Mul(TorqueMultiplier*2)), MaxTorque)
	}
	if dir.Right {
		force.Torque = clampLength(force.Torque.Sub(side.Mul(TorqueMultiplier*2)), MaxTorque)
	}
	if dir.Reset {
		vel.Angular = mgl64.Vec3{}
	}
}

// headingOf 当前线速度方向；速度为零时退回 DefaultHeading，避免 NaN
func headingOf(v mgl64.Vec3) mgl64.Vec3 {
	if v.Len() <= minSpeed {
		return DefaultHeading
	}
	return v.Normalize()
}

func clampLength(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := v.Len()
	if l <= max {
		return v
	}
	return v.Mul(max / l)
}
