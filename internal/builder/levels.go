// 包 builder：离线构建流程，把勘测几何转换为分层导航图与查询索引
package builder

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/osm"

	"campus-nav/internal/failure"
	"campus-nav/internal/graph"
	"campus-nav/internal/logger"
)

var levelRange = regexp.MustCompile(`^(-?\d+)\s*-\s*(-?\d+)$`)

// maxRangeSpan：单个区间允许展开的最大层数
const maxRangeSpan = 64

// ParseLevels：解析楼层标签
// 支持单值、分号列表与闭区间（如 "0-2"、"-2--1"、"2-0"，方向由端点推导）；无法解析的条目被跳过并作为 MalformedError 返回
func ParseLevels(raw string) ([]string, []error) {
	var (
		out  []string
		errs []error
		seen = make(map[string]bool)
	)
	add := func(l string) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := levelRange.FindStringSubmatch(part); m != nil {
			a, errA := strconv.Atoi(m[1])
			b, errB := strconv.Atoi(m[2])
			if errA != nil || errB != nil {
				errs = append(errs, &failure.MalformedError{Entity: "level " + strconv.Quote(part), Reason: "range endpoint out of range"})
				continue
			}
			step, lo, hi := 1, a, b
			if a > b {
				step, lo, hi = -1, b, a
			}
			// 无符号差值避免端点相距过远时溢出
			if uint64(hi)-uint64(lo) > maxRangeSpan {
				errs = append(errs, &failure.MalformedError{Entity: "level " + strconv.Quote(part), Reason: "range too wide"})
				continue
			}
			for x := a; ; x += step {
				add(strconv.Itoa(x))
				if x == b {
					break
				}
			}
			continue
		}
		if !validLabel(part) {
			errs = append(errs, &failure.MalformedError{Entity: "level " + strconv.Quote(part), Reason: "unparseable level label"})
			continue
		}
		add(part)
	}
	return out, errs
}

// validLabel：数值楼层或不含区间符号的简短标签（如 "B"、"M1"）
func validLabel(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	if len(s) > 8 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// LevelsOf：取 level（缺失时取 level:ref）；缺失或全部无法解析时为 "0"
func LevelsOf(ref string, tags osm.Tags) []string {
	raw := tags.Find("level")
	if raw == "" {
		raw = tags.Find("level:ref")
	}
	levels, errs := ParseLevels(raw)
	for _, err := range errs {
		logger.Component("builder").Warn("level_tag_skipped", "ref", ref, "raw", raw, "err", err)
	}
	if len(levels) == 0 {
		return []string{graph.DefaultLevel}
	}
	return levels
}
