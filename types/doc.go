// Copyright (c) DBFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 dbflow 的全局共享类型定义。

# 概述

types 是库中最底层的公共包，不依赖任何内部包，为 dsn、auth、retry、
pool 与根包 dbflow 提供统一的类型契约。所有跨包共享的枚举、结构体和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - DBType              — 数据库类型枚举（sqlite / postgres / mysql / mssql / oracle），
    含默认端口、URL scheme 与别名解析
  - AuthDescriptor      — 认证描述符的封闭标签联合（basic / environment /
    credential_store / certificate / token / cloud_role），每个值恰好携带一个变体
  - DriverParams        — 解析后的驱动连接参数（用户名 / 密码 / 嵌套 ConnectArgs）
  - Error / ErrorCode   — 结构化错误体系，含 Retryable 标记、恢复建议与净化上下文

# 主要能力

  - 错误工具链：AsError / IsCode / IsRetryable / GetErrorCode
  - 常用错误构造：NewConnectionError / NewPoolExhaustedError / NewDecryptionError 等
  - 敏感信息净化：SanitizeContext 屏蔽键名含 password / token / key / secret 的值，
    全部日志与错误上下文在跨越库边界前都经过它
  - 凭证掩码输出：AuthDescriptor.String 与 DriverParams.MarshalJSON 永不泄露密钥
*/
package types
