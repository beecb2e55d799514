// 包 middleware：服务入口的通用 HTTP 中间件
package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
)

// 文档注释：管理入口 IP/CIDR 白名单
// 约束：
// 1) 仅拦截 Guard 指定的路径前缀，路由查询不受影响；
// 2) 支持 IPv4/IPv6 CIDR；
// 3) 来源 IP 默认取 RemoteAddr；经反向代理部署时通过 ADMIN_REAL_IP_HEADER 指定头部（取首个有效 IP）。
type Allowlist struct {
	l            *slog.Logger
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
}

// NewAllowlistFromEnv：按环境变量构建白名单
// ADMIN_ALLOW_IPS=1.2.3.4,5.6.7.8     允许的单 IP 列表
// ADMIN_ALLOW_CIDRS=10.0.0.0/8,...    允许的 CIDR 列表
// ADMIN_ALLOW_LOCAL=true              允许 127.0.0.1/::1（默认 true）
// ADMIN_REAL_IP_HEADER=X-Forwarded-For
func NewAllowlistFromEnv(l *slog.Logger) *Allowlist {
	local := os.Getenv("ADMIN_ALLOW_LOCAL")
	return NewAllowlist(l,
		splitList(os.Getenv("ADMIN_ALLOW_IPS")),
		splitList(os.Getenv("ADMIN_ALLOW_CIDRS")),
		local == "" || local == "true",
		strings.TrimSpace(os.Getenv("ADMIN_REAL_IP_HEADER")),
	)
}

func NewAllowlist(l *slog.Logger, ips, cidrs []string, allowLocal bool, realIPHeader string) *Allowlist {
	a := &Allowlist{l: l, allowIPs: map[string]struct{}{}, realIPHeader: realIPHeader}
	if allowLocal {
		ips = append(ips, "127.0.0.1", "::1")
	}
	for _, p := range ips {
		if ip := net.ParseIP(p); ip != nil {
			a.allowIPs[ip.String()] = struct{}{}
		} else {
			l.Warn("admin_allowlist_bad_ip", "value", p)
		}
	}
	for _, c := range cidrs {
		if _, n, err := net.ParseCIDR(c); err == nil {
			a.allowCIDRs = append(a.allowCIDRs, n)
		} else {
			l.Warn("admin_allowlist_bad_cidr", "value", c, "err", err)
		}
	}
	return a
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Guard：对命中前缀的请求执行白名单校验；无前缀时直接放行
func (a *Allowlist) Guard(prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(prefixes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasPrefix(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}
			ip := a.extractIP(r)
			if ip != nil && a.allowed(ip) {
				next.ServeHTTP(w, r)
				return
			}
			a.l.Debug("admin_allowlist_block", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden", "kind": "forbidden"})
		})
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (a *Allowlist) allowed(ip net.IP) bool {
	if _, ok := a.allowIPs[ip.String()]; ok {
		return true
	}
	for _, n := range a.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// extractIP：优先指定头的首个有效 IP，否则 RemoteAddr
func (a *Allowlist) extractIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
