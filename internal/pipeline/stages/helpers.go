// Package stages provides the six validation stages and their assembly.
package stages

import (
	"time"

	"github.com/secira/TargetCapital-sub000/internal/account"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/policy"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

// Deps 汇集构建默认管线所需的外部协作方。
type Deps struct {
	Subscriptions account.SubscriptionSource
	Brokers       account.BrokerDirectory
	Policies      policy.Source
	FetchTimeout  time.Duration
}

// Default 按固定顺序组装六个阶段：
// subscription → broker → funds → signal → risk → plan。
func Default(d Deps) []pipeline.Stage {
	return []pipeline.Stage{
		NewSubscriptionValidator(d.Subscriptions, d.Policies),
		NewBrokerSelector(d.Brokers, d.FetchTimeout),
		NewFundsValidator(),
		NewSignalValidator(),
		NewRiskCalculator(),
		NewExecutionPlanner(),
	}
}

func missingPrices(sig signal.TradeSignal) []string {
	var missing []string
	if sig.EntryPrice <= 0 {
		missing = append(missing, "entry_price")
	}
	if sig.TargetPrice <= 0 {
		missing = append(missing, "target_price")
	}
	if sig.StopLoss <= 0 {
		missing = append(missing, "stop_loss")
	}
	return missing
}
