package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Decode：从 JSON 流解析图资产，缺失的集合补为空值
func Decode(r io.Reader) (*Graph, error) {
	g := New()
	if err := json.NewDecoder(r).Decode(g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]Node)
	}
	if g.Rooms == nil {
		g.Rooms = make(map[string]Room)
	}
	return g, nil
}

// Load：读取图资产文件
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// LoadBuildings：读取楼宇索引文件
func LoadBuildings(path string) ([]Building, error) {
	var out []Building
	if err := readJSON(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadRoomIndex：读取楼宇 → 房间源索引
func LoadRoomIndex(path string) (RoomIndex, error) {
	out := RoomIndex{}
	if err := readJSON(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSON：先写临时文件再重命名，避免读者看到半写入的资产
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
