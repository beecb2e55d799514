// 包 geom：校园尺度的几何工具（距离、坐标键、多边形中心与命中判定），基于 orb
package geom

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// CoordPrecision：坐标去重精度（小数位，约 1cm）
const CoordPrecision = 7

// Haversine：两点间大圆距离（米）；点为 [lng, lat]
func Haversine(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// SquaredPlanar：经纬度平面上的平方距离，仅用于校园范围内的排序比较
func SquaredPlanar(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}

// CoordKey：按固定精度四舍五入后的坐标键
func CoordKey(p orb.Point) string {
	return fmt.Sprintf("%.*f,%.*f", CoordPrecision, p[0], CoordPrecision, p[1])
}

// SamePoint：在去重精度内视为同一点
func SamePoint(a, b orb.Point) bool {
	return CoordKey(a) == CoordKey(b)
}

// ValidRing：外环至少 4 个坐标（闭合三角形）
func ValidRing(r orb.Ring) bool {
	return len(r) >= 4
}

// ValidPolygon：存在有效外环
func ValidPolygon(p orb.Polygon) bool {
	return len(p) > 0 && ValidRing(p[0])
}

// RingCenter：外环顶点平均值（含闭合点）
func RingCenter(r orb.Ring) orb.Point {
	if len(r) == 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, p := range r {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(r))
	return orb.Point{sx / n, sy / n}
}

// Centroid：多边形面积质心；退化（零面积）时回退为顶点平均
func Centroid(p orb.Polygon) orb.Point {
	if !ValidPolygon(p) {
		if len(p) > 0 {
			return RingCenter(p[0])
		}
		return orb.Point{}
	}
	c, area := planar.CentroidArea(p)
	if area == 0 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return RingCenter(p[0])
	}
	return c
}

// Contains：包围盒预过滤后执行精确点入多边形判定（洞内视为未命中）
func Contains(p orb.Polygon, pt orb.Point) bool {
	if !ValidPolygon(p) {
		return false
	}
	if !p.Bound().Contains(pt) {
		return false
	}
	return planar.PolygonContains(p, pt)
}

// InteriorPoint：返回保证落在多边形内部的代表点
// 约束：质心在内部时直接使用；否则取穿过质心纬度的水平扫描线与外环交点中第一段的中点；仍失败时回退到外环首点
func InteriorPoint(p orb.Polygon) orb.Point {
	if !ValidPolygon(p) {
		if len(p) > 0 && len(p[0]) > 0 {
			return p[0][0]
		}
		return orb.Point{}
	}
	c := Centroid(p)
	if Contains(p, c) {
		return c
	}
	y := c[1]
	var xs []float64
	for _, ring := range p {
		for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
			a, b := ring[j], ring[i]
			if (a[1] > y) == (b[1] > y) {
				continue
			}
			xs = append(xs, a[0]+(y-a[1])*(b[0]-a[0])/(b[1]-a[1]))
		}
	}
	sort.Float64s(xs)
	for i := 0; i+1 < len(xs); i += 2 {
		mid := orb.Point{(xs[i] + xs[i+1]) / 2, y}
		if Contains(p, mid) {
			return mid
		}
	}
	return p[0][0]
}

// PadBound：按度数扩展包围盒
func PadBound(b orb.Bound, pad float64) orb.Bound {
	if pad <= 0 {
		return b
	}
	return b.Pad(pad)
}
