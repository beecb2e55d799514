// 包 failure：路由子系统的错误分类，调用方通过 errors.Is / errors.As 区分失败类型
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDataFetch    = errors.New("data fetch failed")
	ErrUnresolved   = errors.New("unresolved entity")
	ErrNoPath       = errors.New("no path found")
	ErrMalformed    = errors.New("malformed source data")
	ErrOutdoorRoute = errors.New("outdoor route failed")
)

// Kind：无法解析的实体类别
type Kind string

const (
	KindRoom     Kind = "room"
	KindBuilding Kind = "building"
	KindEntrance Kind = "entrance"
	KindNode     Kind = "node"
)

// FetchError：某数据集的全部端点均失败
type FetchError struct {
	Dataset string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("all endpoints failed for %s: %v", e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error        { return e.Err }
func (e *FetchError) Is(target error) bool { return target == ErrDataFetch }

// UnresolvedError：未知楼宇/房间/入口，或房间未吸附到图节点
type UnresolvedError struct {
	Kind   Kind
	ID     string
	Reason string
}

func (e *UnresolvedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %q: %s", e.Kind, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *UnresolvedError) Is(target error) bool { return target == ErrUnresolved }

// NoPathError：端点均可解析但图上不连通
type NoPathError struct {
	From string
	To   string
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no indoor path found from %s to %s", e.From, e.To)
}

func (e *NoPathError) Is(target error) bool { return target == ErrNoPath }

// MalformedError：单个源实体无法解析；构建流程记录后跳过该实体
type MalformedError struct {
	Entity string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s: %s", e.Entity, e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// ProviderError：外部步行路线服务失败（非 2xx、空几何、超时）
type ProviderError struct {
	Status int
	Msg    string
	Err    error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("outdoor route: ")
	b.WriteString(e.Msg)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error        { return e.Err }
func (e *ProviderError) Is(target error) bool { return target == ErrOutdoorRoute }

// Unresolved 构造 UnresolvedError
func Unresolved(kind Kind, id string) error {
	return &UnresolvedError{Kind: kind, ID: id}
}

// KindOf：返回错误所属的分类名，用于指标标签与 HTTP 响应
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnresolved):
		return "unresolved"
	case errors.Is(err, ErrNoPath):
		return "no_path"
	case errors.Is(err, ErrOutdoorRoute):
		return "outdoor"
	case errors.Is(err, ErrDataFetch):
		return "data_fetch"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "internal"
	}
}
