// 包 indoor：预构建室内图上的最短路查询与分层折线转换
// 约束：Router 构造后只读，可被并发请求共享
package indoor

import (
	"container/heap"

	"github.com/paulmach/orb"

	"campus-nav/internal/failure"
	"campus-nav/internal/graph"
	"campus-nav/internal/route"
)

type arc struct {
	to string
	w  float64
}

// Router：持有图句柄与邻接表
type Router struct {
	g   *graph.Graph
	adj map[string][]arc
}

// New：基于图构建邻接表；端点缺失的边忽略
func New(g *graph.Graph) *Router {
	adj := make(map[string][]arc, len(g.Nodes))
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			continue
		}
		if _, ok := g.Nodes[e.To]; !ok {
			continue
		}
		adj[e.From] = append(adj[e.From], arc{to: e.To, w: e.W})
	}
	return &Router{g: g, adj: adj}
}

// Graph：底层图
func (r *Router) Graph() *graph.Graph { return r.g }

type item struct {
	node string
	dist float64
}

type frontier []item

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].dist < f[j].dist }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(item)) }
func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	it := old[n-1]
	*f = old[:n-1]
	return it
}

// 文档注释：Dijkstra 最短路，返回 from 到 to（含两端）的节点序列及总权重
// 约束：任一端点不在图中或不可达时返回空路径；to 出队即提前结束
func (r *Router) shortest(from, to string) ([]string, float64) {
	if _, ok := r.g.Nodes[from]; !ok {
		return nil, 0
	}
	if _, ok := r.g.Nodes[to]; !ok {
		return nil, 0
	}
	dist := map[string]float64{from: 0}
	prev := make(map[string]string)
	done := make(map[string]bool)
	pq := &frontier{{node: from}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(item)
		if done[cur.node] {
			continue
		}
		done[cur.node] = true
		if cur.node == to {
			break
		}
		for _, a := range r.adj[cur.node] {
			if done[a.to] {
				continue
			}
			nd := cur.dist + a.w
			if old, ok := dist[a.to]; !ok || nd < old {
				dist[a.to] = nd
				prev[a.to] = cur.node
				heap.Push(pq, item{node: a.to, dist: nd})
			}
		}
	}
	if !done[to] {
		return nil, 0
	}
	var path []string
	for n := to; ; {
		path = append(path, n)
		if n == from {
			break
		}
		n = prev[n]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, dist[to]
}

// ShortestPath：节点 ID 序列；空结果表示无路径
func (r *Router) ShortestPath(from, to string) []string {
	p, _ := r.shortest(from, to)
	return p
}

// Distance：最短路总权重；不可达时 ok=false
func (r *Router) Distance(from, to string) (float64, bool) {
	p, d := r.shortest(from, to)
	return d, len(p) > 0
}

// 文档注释：按楼层切分节点路径
// 约束：楼层变化时关闭当前段（至少 2 点才保留），新段以前一节点坐标开头以保持跨层连续；未知节点被跳过
func (r *Router) PathToSegments(path []string) []route.Segment {
	var out []route.Segment
	var cur route.Indoor
	var prev *graph.Node
	flush := func() {
		if len(cur.Points) >= 2 {
			out = append(out, cur)
		}
	}
	for _, id := range path {
		n, ok := r.g.Nodes[id]
		if !ok {
			continue
		}
		p := orb.Point{n.Lng, n.Lat}
		switch {
		case prev == nil:
			cur = route.Indoor{Level: n.Level, Points: orb.LineString{p}}
		case n.Level == cur.Level:
			cur.Points = append(cur.Points, p)
		default:
			flush()
			cur = route.Indoor{Level: n.Level, Points: orb.LineString{prev.Point(), p}}
		}
		prev = &n
	}
	if prev != nil {
		flush()
	}
	return out
}

// RouteBetweenNodes：两节点间的分层折线；无路径返回 NoPathError
func (r *Router) RouteBetweenNodes(from, to string) ([]route.Segment, error) {
	p := r.ShortestPath(from, to)
	if len(p) == 0 {
		return nil, &failure.NoPathError{From: from, To: to}
	}
	return r.PathToSegments(p), nil
}

// Room：按键查找已吸附的房间；缺失或未吸附均为 UnresolvedError
func (r *Router) Room(key string) (graph.Room, error) {
	room, ok := r.g.Rooms[key]
	if !ok {
		return graph.Room{}, failure.Unresolved(failure.KindRoom, key)
	}
	if !room.Snapped() {
		return graph.Room{}, &failure.UnresolvedError{Kind: failure.KindRoom, ID: key, Reason: "not snapped to any node on level " + room.Level}
	}
	return room, nil
}

// RouteRoomToRoom：房间到房间
func (r *Router) RouteRoomToRoom(fromKey, toKey string) ([]route.Segment, error) {
	from, err := r.Room(fromKey)
	if err != nil {
		return nil, err
	}
	to, err := r.Room(toKey)
	if err != nil {
		return nil, err
	}
	return r.RouteBetweenNodes(from.Node, to.Node)
}

// RouteEntranceToRoom：从指定入口节点到房间
func (r *Router) RouteEntranceToRoom(entranceID, roomKey string) ([]route.Segment, error) {
	if _, ok := r.g.Nodes[entranceID]; !ok {
		return nil, failure.Unresolved(failure.KindEntrance, entranceID)
	}
	to, err := r.Room(roomKey)
	if err != nil {
		return nil, err
	}
	return r.RouteBetweenNodes(entranceID, to.Node)
}
