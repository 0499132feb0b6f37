// Copyright (c) DBFlow Authors.
// Licensed under the MIT License.

/*
Package retry 提供 dbflow 的错误分类与重试执行引擎。

# 概述

所有越过库边界的驱动错误都先经过分类：瞬态基础设施故障（连接被拒、
超时、连接重置）可重试，永久性错误（约束冲突、语法或权限问题）立即
传播。重试决策 Decide 是 (分类, 尝试次数, 策略) 的纯函数，与执行器的
副作用（日志、退避睡眠）分离，可独立测试。

# 核心能力

  - Classify — 按驱动错误文本归类为 Transient / IntegrityViolation /
    SyntaxOrPermission / Unknown
  - Decide — 纯重试决策：指数退避 delay = BaseDelay × 2^(attempt−1)，
    封顶 MaxDelay
  - Executor.Do / DoValue — 带上下文取消的重试循环，每次重试记录
    Warn 日志，重试耗尽后返回携带尝试次数与最后原因的分类错误
  - ClassifiedError — 将任意驱动错误包装为带恢复建议的 *types.Error

# 使用示例

	exec := retry.NewExecutor(retry.PolicyFromConfig(cfg.Retry), logger)
	err := exec.Do(ctx, "connect", func(ctx context.Context) error {
	    return engine.Ping(ctx)
	})

非瞬态错误零重试直接返回；瞬态错误最多重试 MaxRetries 次，
总尝试次数 = MaxRetries + 1。
*/
package retry
