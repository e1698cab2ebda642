package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	pccfg "github.com/secira/TargetCapital-sub000/internal/config"
	"github.com/secira/TargetCapital-sub000/internal/logger"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/policy"
	"github.com/secira/TargetCapital-sub000/internal/store/gormstore"
)

// App 负责应用级编排：加载配置→初始化依赖→对外提供预检流水线。
type App struct {
	cfg       *pccfg.Config
	pipe      *pipeline.Pipeline
	directory *gormstore.Store
	policies  policy.Source
	metrics   *http.Server
	Summary   *StartupSummary
}

// NewApp 根据配置构建应用对象。
func NewApp(cfg *pccfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Pipeline 返回预检流水线实例。
func (a *App) Pipeline() *pipeline.Pipeline {
	if a == nil {
		return nil
	}
	return a.pipe
}

// Directory 暴露账户目录存储（accounts 系列命令使用）。未初始化本地存储
// （依赖被外部注入）时返回 nil。
func (a *App) Directory() *gormstore.Store {
	if a == nil {
		return nil
	}
	return a.directory
}

// Policies 暴露当前生效的风控策略源。
func (a *App) Policies() policy.Source {
	if a == nil {
		return nil
	}
	return a.policies
}

// Close 关闭指标端点与账户存储。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []string
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("metrics shutdown: %v", err))
		}
		cancel()
		a.metrics = nil
	}
	if a.directory != nil {
		if err := a.directory.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("close account directory: %v", err))
		}
		a.directory = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("app close: %s", strings.Join(errs, "; "))
	}
	return nil
}
