package graph

import (
	"errors"
	"fmt"
)

// Validate：检查图资产的结构不变量，返回全部违规的合并错误
// 约束：边端点必须存在且权重非负；已吸附房间的节点楼层与房间楼层一致；入口引用的节点存在
func (g *Graph) Validate() error {
	var errs []error
	for i, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			errs = append(errs, fmt.Errorf("edge %d: dangling from %q", i, e.From))
		}
		if _, ok := g.Nodes[e.To]; !ok {
			errs = append(errs, fmt.Errorf("edge %d: dangling to %q", i, e.To))
		}
		if e.W < 0 {
			errs = append(errs, fmt.Errorf("edge %d: negative weight %f", i, e.W))
		}
	}
	for key, r := range g.Rooms {
		if !r.Snapped() {
			continue
		}
		n, ok := g.Nodes[r.Node]
		if !ok {
			errs = append(errs, fmt.Errorf("room %q: node %q missing", key, r.Node))
			continue
		}
		if n.Level != r.Level {
			errs = append(errs, fmt.Errorf("room %q: level %q but node %q on level %q", key, r.Level, r.Node, n.Level))
		}
	}
	for _, en := range g.Entrances {
		if _, ok := g.Nodes[en.Node]; !ok {
			errs = append(errs, fmt.Errorf("entrance %q: node missing", en.Node))
		}
	}
	return errors.Join(errs...)
}
