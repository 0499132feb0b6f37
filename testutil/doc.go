// Copyright 2026 DBFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 dbflow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和测试引擎。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor，
    支持超时轮询等待条件满足
  - 测试引擎: NewMockEngine 返回 sqlmock 支撑的 GORM 引擎，
    NewPingableMockConn 返回开启 ping 监控的原始连接

# 使用示例

	engine, mock := testutil.NewMockEngine(t)
	mock.ExpectQuery("SELECT 1").WillReturnRows(
	    sqlmock.NewRows([]string{"1"}).AddRow(1))

	var n int
	err := engine.Raw("SELECT 1").Scan(&n).Error
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
*/
package testutil
