// 版权所有 2024 DBFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖连接池、
重试与凭据解析三大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用
promauto.With(registerer) 注册机制：传入 nil 使用默认注册表，
测试传入私有注册表以隔离用例。所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 指标，按业务域分组管理。所有记录方法 nil 安全，
    未配置收集器的组件可直接在 nil 接收者上调用。

# 主要能力

  - 连接池指标：存活引擎数 Gauge、创建计数、按原因
    （health/recycle/disposed）分组的逐出计数、存活探测耗时 Histogram。
  - 重试指标：按操作分组的重试计数与预算耗尽计数。
  - 凭据解析指标：按认证类型与结果分组的解析计数。
*/
package metrics
