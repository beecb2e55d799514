// 包 failover：有序候选列表上的“首个成功者胜出”组合子
// 背景：勘测数据端点与其他冗余提供方共用同一套失败切换语义
package failover

import (
	"context"
	"errors"
	"fmt"

	"campus-nav/internal/logger"
)

var (
	ErrNoCandidates = errors.New("no candidates configured")
	ErrExhausted    = errors.New("all candidates failed")
)

// Attempt：单个候选的执行函数
type Attempt[C, T any] func(ctx context.Context, c C) (T, error)

// 文档注释：按顺序尝试候选，返回第一个成功结果及其候选
// 约束：同一候选不重试、无退避；全部失败时返回 ErrExhausted 与各候选错误的合并；ctx 取消时立即停止
func First[C, T any](ctx context.Context, cands []C, fn Attempt[C, T]) (T, C, error) {
	var zero T
	var zc C
	if len(cands) == 0 {
		return zero, zc, ErrNoCandidates
	}
	errs := make([]error, 0, len(cands))
	for i, c := range cands {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := fn(ctx, c)
		if err == nil {
			return v, c, nil
		}
		logger.L().Warn("failover_candidate_fail", "index", i, "candidate", fmt.Sprint(c), "err", err)
		errs = append(errs, fmt.Errorf("%v: %w", c, err))
	}
	return zero, zc, errors.Join(append([]error{ErrExhausted}, errs...)...)
}

type outcome[C, T any] struct {
	idx int
	c   C
	v   T
	err error
}

// 文档注释：并发尝试全部候选，取第一个成功结果
// 约束：首个成功即取消其余请求；结果无序，若多个同时成功则以先到者为准
func FirstParallel[C, T any](ctx context.Context, cands []C, fn Attempt[C, T]) (T, C, error) {
	var zero T
	var zc C
	if len(cands) == 0 {
		return zero, zc, ErrNoCandidates
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan outcome[C, T], len(cands))
	for i, c := range cands {
		go func(i int, c C) {
			v, err := fn(ctx, c)
			ch <- outcome[C, T]{idx: i, c: c, v: v, err: err}
		}(i, c)
	}
	errs := make([]error, len(cands))
	for range cands {
		o := <-ch
		if o.err == nil {
			return o.v, o.c, nil
		}
		logger.L().Warn("failover_candidate_fail", "index", o.idx, "candidate", fmt.Sprint(o.c), "err", o.err)
		errs[o.idx] = fmt.Errorf("%v: %w", o.c, o.err)
	}
	return zero, zc, errors.Join(append([]error{ErrExhausted}, errs...)...)
}
