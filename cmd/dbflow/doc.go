// Copyright (c) DBFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 dbflow 诊断命令行入口。

# 概述

cmd/dbflow 是 dbflow 库的诊断工具，面向运维排障场景：验证配置文件
与环境变量能否解析出可用的连接目标、目标数据库是否可达、模式内省
结果是否符合预期。所有子命令共享同一套目标选择标志，结构化结果以
缩进 JSON 打到 stdout，日志走 stderr。

# 子命令

  - ping     — 建立连接并输出 ConnectionInfo；--pooled 时经由连接池并附带池状态
  - schema   — 输出完整模式、单表模式（--table）或表级摘要（--summary）
  - exec     — 执行一条原生 SQL 并输出行集或受影响行数
  - version  — 显示版本信息

# 目标选择优先级

--dsn 显式连接串 > --from-env（DB_* 环境变量）> --config 配置文件
（含 DBFLOW_* 环境变量覆盖）。.env 文件在一切解析之前加载，缺失时
静默跳过。

# 构建注入

Version、BuildTime、GitCommit 通过 ldflags 设置；Version 缺省取库
版本常量。
*/
package main
