// 包 cli 为命令行入口（cobra）：单榜单、仪表板、定时刷新、详情、抓取调试、偏好与缓存管理。
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// options 为全局 flags。
type options struct {
	configPath string
	rulesPath  string
}

// NewRootCmd 构造根命令及全部子命令。
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "mac-app-monitor",
		Short:         "mac-app-monitor tracks Mac App Store rankings across countries and categories.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "settings.yaml", "path to settings.yaml")
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", "rules.yaml", "path to rules.yaml (optional)")

	root.AddCommand(
		newSectionCmd(opts),
		newDashboardCmd(opts),
		newWatchCmd(opts),
		newDetailCmd(opts),
		newDiscoverCmd(opts),
		newPrefsCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

// Execute 执行根命令，出错时以非零状态退出。
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
