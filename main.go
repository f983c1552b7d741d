// 命令行入口：
// - 解析子命令与 settings.yaml/rules.yaml
// - 初始化日志、HTTP 客户端、转发取数器、缓存存储
// - Ctrl+C 取消进行中的请求（watch 模式随之退出）
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mac-app-monitor/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.Execute(ctx)
}
