// Copyright (c) DBFlow Authors.
// Licensed under the MIT License.

/*
Package pool 提供按连接身份缓存数据库引擎的进程级连接池。

# 概述

池以 dsn.Identity（规范化连接串 + 额外驱动参数哈希）为键缓存存活的
GORM 引擎与会话工厂。未命中时创建新引擎并执行一次存活探测；命中时
O(1) 返回并刷新最近使用时间。容量上限为 PoolSize + MaxOverflow，
超出立即快速失败，从不阻塞等待 —— 需要背压的调用方自行重试。

# 所有权模型

池独占引擎的所有权：facade 借用只读句柄，绝不越过池的互斥访问器
拿到可变内部状态。条目的逐出（健康检查失败、闲置超过 PoolRecycle、
DisposeAll）只由池自身发起。

# 后台监护

StartMonitor 启动单个监护 goroutine，按 HealthCheckInterval 对每个
条目做一次轻量往返探测：失败即逐出并记录身份；闲置超期的条目无论
健康与否一并回收。探测与引擎创建的网络 I/O 都不持有池锁。

# 使用示例

	p := pool.New(cfg.Pool, pool.WithLogger(logger))
	p.StartMonitor()
	defer p.DisposeAll()

	engine, err := p.GetEngine(ctx, connString, nil)

池实例由进程的组合根显式构建并注入 facade，库内不维护任何全局单例。
*/
package pool
