package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/secira/TargetCapital-sub000/internal/account"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/policy"
)

// SubscriptionValidator 校验订阅等级是否允许进入交易管线。
type SubscriptionValidator struct {
	meta     pipeline.StageMeta
	source   account.SubscriptionSource
	policies policy.Source
}

// NewSubscriptionValidator 构造订阅校验阶段。
func NewSubscriptionValidator(source account.SubscriptionSource, policies policy.Source) *SubscriptionValidator {
	return &SubscriptionValidator{
		meta:     pipeline.StageMeta{Name: pipeline.StageSubscription},
		source:   source,
		policies: policies,
	}
}

// Meta 实现接口。
func (s *SubscriptionValidator) Meta() pipeline.StageMeta { return s.meta }

// Run 解析用户当前等级并做准入判断，同时把该等级生效的风控参数
// 写入状态。等级无论通过与否都会记录，便于审计。
func (s *SubscriptionValidator) Run(ctx context.Context, st *pipeline.State) error {
	tier, err := s.source.TierFor(ctx, st.UserID)
	if err != nil {
		return fmt.Errorf("resolve subscription tier: %w", err)
	}
	tier = strings.ToLower(strings.TrimSpace(tier))
	st.SubscriptionTier = tier
	st.Policy = s.policies.PolicyFor(tier)

	if !s.policies.TierAllowed(tier) {
		required := strings.Join(s.policies.AllowedTiers(), "/")
		if required == "" {
			required = "none"
		}
		return pipeline.Failf(pipeline.KindSubscriptionInsufficient,
			"current tier %q does not permit trade execution, requires one of: %s", tier, required)
	}
	return nil
}
