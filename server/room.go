package server

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

type joinRequest struct {
	id      ClientID
	session string
	conn    *ClientConn
}

type gravityRequest struct {
	id    ClientID
	scale float64
	d     time.Duration
}

// Settings 运行期可热更新的房间参数
type Settings struct {
	MaxInputsPerTick int     `json:"maxInputsPerTick"`
	SimulateDropProb float64 `json:"simulateDropProb"`
}

// Room 房间世界：权威状态维护在 ECS 世界中，单线程 Tick 推进
type Room struct {
	ID  string
	cfg RoomConfig

	world    donburi.World
	registry *Registry
	counter  *SpawnCounter

	materializer *Materializer
	translator   *Translator
	integrator   *Integrator
	publisher    *Publisher
	snapshot     *donburi.Query

	// players 仅在 Tick 线程中访问
	players map[ClientID]*Player

	inputChan   chan InputEvent
	joinChan    chan joinRequest
	leaveChan   chan ClientID
	gravityChan chan gravityRequest

	settingsMu sync.RWMutex
	settings   Settings

	rng     *rand.Rand
	now     float64
	tickSeq atomic.Int64
	metrics *RoomMetrics

	tickerStarted bool
	stop          chan struct{}
}

// NewRoom 创建房间，初始化 ECS 世界与各阶段系统
func NewRoom(id string, cfg RoomConfig) *Room {
	r := &Room{
		ID:          id,
		cfg:         cfg,
		world:       donburi.NewWorld(),
		registry:    NewRegistry(),
		counter:     NewSpawnCounter(cfg.PlayerCount),
		players:     make(map[ClientID]*Player),
		inputChan:   make(chan InputEvent, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		joinChan:    make(chan joinRequest, 64),
		leaveChan:   make(chan ClientID, 64),
		gravityChan: make(chan gravityRequest, 16),
		settings: Settings{
			MaxInputsPerTick: cfg.MaxInputsPerTick,
			SimulateDropProb: cfg.SimulateDropProb,
		},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics: &RoomMetrics{},
		stop:    make(chan struct{}),
	}
	r.materializer = NewMaterializer(r.counter, cfg.Physics)
	r.translator = NewTranslator(r.registry)
	r.integrator = NewIntegrator(cfg.ArenaRadius, r.respawn)
	r.publisher = NewPublisher()
	r.snapshot = donburi.NewQuery(filter.Contains(PlayerPosition, PlayerColor, NetOwner))
	return r
}

func (r *Room) Registry() *Registry         { return r.registry }
func (r *Room) SpawnCounter() *SpawnCounter { return r.counter }
func (r *Room) Metrics() *RoomMetrics       { return r.metrics }
func (r *Room) TickSeq() int64              { return r.tickSeq.Load() }

func (r *Room) Settings() Settings {
	r.settingsMu.RLock()
	defer r.settingsMu.RUnlock()
	return r.settings
}

func (r *Room) UpdateSettings(fn func(s *Settings)) Settings {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()
	fn(&r.settings)
	return r.settings
}

// RequestJoin 请求在 Tick 线程中加入玩家
func (r *Room) RequestJoin(id ClientID, session string, conn *ClientConn) {
	r.joinChan <- joinRequest{id: id, session: session, conn: conn}
}

// RequestLeave 请求在 Tick 线程中移除玩家，避免并发改动房间状态
func (r *Room) RequestLeave(id ClientID) {
	// 为保证移除一定生效，这里采用阻塞式写入（通道有容量，避免死锁）
	r.leaveChan <- id
}

// RequestGravity 请求对某个玩家施加临时重力修正
func (r *Room) RequestGravity(id ClientID, scale float64, d time.Duration) {
	select {
	case r.gravityChan <- gravityRequest{id: id, scale: scale, d: d}:
	default:
		Log.Warnf("room %s: gravity request dropped for client %d", r.ID, id)
	}
}

// OnInput 入站输入（不立即生效），等下一次 Tick 处理
func (r *Room) OnInput(in InputEvent) {
	// 不阻塞：输入拥塞时直接丢弃，保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// Tick 推进一帧：成员变更 → materialize → 输入 → 物理 → 同步 → 广播
func (r *Room) Tick(dt float64) {
	r.now += dt
	r.BeginTick()
	r.processMembership()
	if n := r.materializer.Run(r.world); n > 0 {
		r.metrics.AddMaterialized(int64(n))
	}
	r.ProcessInputs()
	r.UpdateWorld(dt)
	r.publisher.Publish(r.world)
	r.tickSeq.Add(1)
	r.Broadcast()
}

// BeginTick 重置帧内计数
func (r *Room) BeginTick() {
	for _, p := range r.players {
		p.tickInputs = 0
	}
}

func (r *Room) processMembership() {
	for {
		select {
		case req := <-r.joinChan:
			r.join(req)
		case id := <-r.leaveChan:
			r.leave(id)
		case g := <-r.gravityChan:
			r.applyGravity(g)
		default:
			return
		}
	}
}

// join 生成玩家实体外壳（只有位置与颜色），人数到齐后由 Materializer 补全
func (r *Room) join(req joinRequest) {
	if _, dup := r.players[req.id]; dup {
		return
	}
	if r.counter.Full() {
		Log.Infof("room %s full, reject client %d", r.ID, req.id)
		if req.conn != nil {
			r.send(req.conn, NoticeFrame{Type: "full"})
			req.conn.Close()
		}
		return
	}
	slot := r.counter.Current()
	color := ColorFor(slot)
	ent := r.world.Create(PlayerPosition, PlayerColor, NetOwner)
	e := r.world.Entry(ent)
	PlayerPosition.SetValue(e, PlayerPositionData{
		Translation: SpawnPoint(slot, r.cfg.PlayerCount, r.cfg.ArenaRadius/2),
		Rotation:    mgl64.QuatIdent(),
	})
	PlayerColor.SetValue(e, color)
	NetOwner.SetValue(e, NetOwnerData{Client: req.id})

	r.registry.Register(req.id, ent)
	r.counter.NoteSpawned()
	r.players[req.id] = &Player{ID: req.id, Session: req.session, Slot: slot, Conn: req.conn, lastSeq: -1}
	Log.Infow("player joined", "room", r.ID, "client", req.id, "session", req.session,
		"slot", slot, "spawned", r.counter.Current(), "max", r.counter.Max())

	if req.conn != nil {
		r.send(req.conn, WelcomeFrame{
			Type:    "welcome",
			ID:      uint64(req.id),
			Session: req.session,
			Radius:  PlayerRadius,
			Color:   color.RGB,
		})
	}
}

// leave 将玩家移出房间；出生计数不回退
func (r *Room) leave(id ClientID) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	if ent, ok := r.registry.Resolve(id); ok && r.world.Valid(ent) {
		r.world.Remove(ent)
	}
	r.registry.Unregister(id)
	if p.Conn != nil {
		p.Conn.Close()
	}
	delete(r.players, id)
	Log.Infow("player left", "room", r.ID, "client", id)
}

func (r *Room) applyGravity(g gravityRequest) {
	ent, ok := r.registry.Resolve(g.id)
	if !ok || !r.world.Valid(ent) {
		return
	}
	if ApplyGravityModifier(r.world.Entry(ent), g.scale, g.d) {
		Log.Infow("gravity modifier", "room", r.ID, "client", g.id, "scale", g.scale, "duration", g.d)
	}
}

// ProcessInputs 处理当前帧的所有输入（非阻塞 drain）
func (r *Room) ProcessInputs() {
	s := r.Settings()
	var events []InputEvent
drain:
	for {
		select {
		case in := <-r.inputChan:
			if r.admit(in, s) {
				events = append(events, in)
			}
		default:
			break drain
		}
	}
	r.translator.Apply(r.world, events, r.now)
}

// admit 序列去重、同帧限流与模拟丢包
func (r *Room) admit(in InputEvent, s Settings) bool {
	p, ok := r.players[in.From]
	if !ok {
		return false
	}
	if in.Seq > 0 {
		if in.Seq <= p.lastSeq {
			r.metrics.IncOldSeqIgnored()
			return false
		}
		p.lastSeq = in.Seq
	}
	if s.MaxInputsPerTick > 0 && p.tickInputs >= s.MaxInputsPerTick {
		r.metrics.IncRateLimited()
		return false
	}
	if s.SimulateDropProb > 0 && r.rng.Float64() < s.SimulateDropProb {
		r.metrics.IncDropsSimulated()
		return false
	}
	p.tickInputs++
	r.metrics.IncAccepted()
	return true
}

// UpdateWorld 物理积分（关闭物理时世界静止）
func (r *Room) UpdateWorld(dt float64) {
	if !r.cfg.Physics {
		return
	}
	events := r.integrator.Step(r.world, dt, r.now)
	if len(events) > 0 {
		r.metrics.AddCollisions(int64(len(events)))
	}
}

// respawn 掉出场地的玩家回到自己的出生点
func (r *Room) respawn(e *donburi.Entry) {
	slot := 0
	if p, ok := r.players[ownerOf(e)]; ok {
		slot = p.Slot
	}
	tf := Transform.Get(e)
	tf.Translation = SpawnPoint(slot, r.cfg.PlayerCount, r.cfg.ArenaRadius/2)
	tf.Rotation = mgl64.QuatIdent()
	Velocity.SetValue(e, VelocityData{})
	ExternalForce.SetValue(e, ExternalForceData{})
	Log.Debugw("respawn", "room", r.ID, "client", ownerOf(e), "slot", slot)
}

// Snapshot 当前权威状态
func (r *Room) Snapshot() StateFrame {
	frame := StateFrame{Type: "state", Tick: r.tickSeq.Load(), Time: r.now}
	r.snapshot.Each(r.world, func(e *donburi.Entry) {
		pos := PlayerPosition.Get(e)
		frame.Players = append(frame.Players, PlayerState{
			ID:    uint64(NetOwner.Get(e).Client),
			X:     pos.Translation.X(),
			Y:     pos.Translation.Y(),
			Z:     pos.Translation.Z(),
			QW:    pos.Rotation.W,
			QX:    pos.Rotation.V.X(),
			QY:    pos.Rotation.V.Y(),
			QZ:    pos.Rotation.V.Z(),
			Color: PlayerColor.Get(e).RGB,
		})
	})
	return frame
}

// Broadcast 将当前世界状态广播给所有玩家
func (r *Room) Broadcast() {
	if len(r.players) == 0 {
		return
	}
	b, kind, err := Encode(r.cfg.Codec, r.Snapshot())
	if err != nil {
		Log.Errorf("room %s: encode state: %v", r.ID, err)
		return
	}
	for _, p := range r.players {
		if p.Conn != nil && !p.Conn.Enqueue(kind, b) {
			r.metrics.IncBroadcastDropped()
		}
	}
}

func (r *Room) send(c *ClientConn, v any) {
	b, kind, err := Encode(r.cfg.Codec, v)
	if err != nil {
		Log.Errorf("room %s: encode: %v", r.ID, err)
		return
	}
	c.Enqueue(kind, b)
}
