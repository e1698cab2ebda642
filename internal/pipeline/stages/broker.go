package stages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/secira/TargetCapital-sub000/internal/account"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
)

// BrokerSelector 解析用户唯一的 primary 券商链接并读取可用资金。
// 目录查询是整条管线唯一可能阻塞的调用，由 StageMeta.Timeout 限时。
type BrokerSelector struct {
	meta      pipeline.StageMeta
	directory account.BrokerDirectory
}

// NewBrokerSelector 构造券商选择阶段。timeout<=0 时不限时。
func NewBrokerSelector(directory account.BrokerDirectory, timeout time.Duration) *BrokerSelector {
	return &BrokerSelector{
		meta:      pipeline.StageMeta{Name: pipeline.StageBroker, Timeout: timeout},
		directory: directory,
	}
}

// Meta 实现接口。
func (b *BrokerSelector) Meta() pipeline.StageMeta { return b.meta }

// Run 查询 primary 链接。零个或多个 primary 都按硬失败处理，
// 目录超时与连接断开是两类不同的失败。
func (b *BrokerSelector) Run(ctx context.Context, st *pipeline.State) error {
	snap, err := b.directory.PrimaryBroker(ctx, st.UserID)
	switch {
	case err == nil:
	case errors.Is(err, account.ErrNoPrimary):
		return pipeline.Failf(pipeline.KindNoPrimaryBroker,
			"no primary broker account is linked; link and activate a broker before trading")
	case errors.Is(err, account.ErrAmbiguousPrimary):
		return pipeline.Failf(pipeline.KindNoPrimaryBroker,
			"multiple broker accounts are marked primary; exactly one is required")
	case errors.Is(err, context.DeadlineExceeded):
		return &pipeline.ValidationError{
			Kind:    pipeline.KindBrokerUnavailable,
			Message: "broker directory did not respond in time",
			Err:     err,
		}
	default:
		return fmt.Errorf("resolve primary broker: %w", err)
	}

	st.Broker = snap
	if !snap.Connected() {
		return pipeline.Failf(pipeline.KindBrokerDisconnected,
			"primary broker %s is %s; reconnect it before trading", snap.Name, snap.Status)
	}
	st.AvailableFunds = snap.AvailableMargin
	return nil
}
