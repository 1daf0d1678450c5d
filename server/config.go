package server

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 服务配置（YAML）
type Config struct {
	Listen string     `yaml:"listen"`
	Log    LogConfig  `yaml:"log"`
	Room   RoomConfig `yaml:"room"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// RoomConfig 房间规则；Physics 与 PlayerCount 在创建房间时固定
type RoomConfig struct {
	Physics          bool    `yaml:"physics"`
	PlayerCount      int     `yaml:"player_count"`
	TicksPerSecond   int     `yaml:"ticks_per_second"`
	ArenaRadius      float64 `yaml:"arena_radius"`
	MaxInputsPerTick int     `yaml:"max_inputs_per_tick"`
	SimulateDropProb float64 `yaml:"simulate_drop_prob"`
	Codec            string  `yaml:"codec"` // "json" 或 "msgpack"
}

func DefaultConfig() Config {
	return Config{
		Listen: ":8080",
		Log:    LogConfig{File: "app.log", Level: "debug"},
		Room: RoomConfig{
			Physics:          true,
			PlayerCount:      2,
			TicksPerSecond:   TicksPerSecond,
			ArenaRadius:      10,
			MaxInputsPerTick: 4,
			Codec:            CodecJSON,
		},
	}
}

// LoadConfig 读取 YAML，缺省字段使用 DefaultConfig
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	r := c.Room
	switch {
	case r.PlayerCount <= 0:
		return errors.New("room.player_count must be positive")
	case r.TicksPerSecond <= 0:
		return errors.New("room.ticks_per_second must be positive")
	case r.ArenaRadius <= 0:
		return errors.New("room.arena_radius must be positive")
	case r.MaxInputsPerTick < 0:
		return errors.New("room.max_inputs_per_tick must not be negative")
	case r.SimulateDropProb < 0 || r.SimulateDropProb > 1:
		return errors.New("room.simulate_drop_prob must be within [0,1]")
	}
	if r.Codec != CodecJSON && r.Codec != CodecMsgpack {
		return fmt.Errorf("room.codec: unknown codec %q", r.Codec)
	}
	return nil
}
