// Package config 提供 dbflow 的配置管理功能。
//
// 包含连接、连接池与重试三组配置结构及其默认值与校验，
// 支持从 YAML 文件、环境变量和 .env 文件加载配置。
package config
