package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoadConfig 使用表驱动测试覆盖配置加载的核心场景
func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name       string
		createFile bool
		content    string
		wantErr    string
		validate   func(t *testing.T, cfg Config)
	}{
		{
			name:       "正常加载有效YAML",
			createFile: true,
			content: `listen: ":9000"
log:
  file: "arena.log"
  level: "info"
room:
  physics: false
  player_count: 4
  ticks_per_second: 30
  arena_radius: 12.5
  max_inputs_per_tick: 2
  simulate_drop_prob: 0.1
  codec: "msgpack"
`,
			validate: func(t *testing.T, cfg Config) {
				if cfg.Listen != ":9000" || cfg.Log.File != "arena.log" || cfg.Log.Level != "info" {
					t.Fatalf("unexpected top-level config: %+v", cfg)
				}
				want := RoomConfig{
					Physics:          false,
					PlayerCount:      4,
					TicksPerSecond:   30,
					ArenaRadius:      12.5,
					MaxInputsPerTick: 2,
					SimulateDropProb: 0.1,
					Codec:            CodecMsgpack,
				}
				if cfg.Room != want {
					t.Fatalf("room = %+v, want %+v", cfg.Room, want)
				}
			},
		},
		{
			name:       "缺省字段使用默认值",
			createFile: true,
			content: `room:
  player_count: 3
`,
			validate: func(t *testing.T, cfg Config) {
				def := DefaultConfig()
				if cfg.Listen != def.Listen || !cfg.Room.Physics || cfg.Room.PlayerCount != 3 {
					t.Fatalf("defaults not applied: %+v", cfg)
				}
				if cfg.Room.Codec != CodecJSON {
					t.Fatalf("codec = %q, want json", cfg.Room.Codec)
				}
			},
		},
		{
			name:    "文件不存在",
			wantErr: "read config",
		},
		{
			name:       "YAML格式错误",
			createFile: true,
			content:    "room: [unclosed",
			wantErr:    "parse config",
		},
		{
			name:       "玩家数非法",
			createFile: true,
			content: `room:
  player_count: 0
`,
			wantErr: "player_count",
		},
		{
			name:       "未知编码",
			createFile: true,
			content: `room:
  codec: "xml"
`,
			wantErr: "unknown codec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.createFile {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("write config: %v", err)
				}
			}
			cfg, err := LoadConfig(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
