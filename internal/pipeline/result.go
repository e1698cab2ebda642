package pipeline

import (
	"github.com/secira/TargetCapital-sub000/internal/plan"
)

// Metadata 汇总一次调用的审计信息。
type Metadata struct {
	TraceID          string `json:"trace_id"`
	StagesCompleted  int    `json:"stages_completed"`
	TotalStages      int    `json:"total_stages"`
	SubscriptionTier string `json:"subscription_tier,omitempty"`
	BrokerUsed       string `json:"broker_used,omitempty"`
}

// Result 是一次校验调用的完整输出。失败时 ExecutionPlan 为空，
// ValidationErrors 与 StageStatus 指出未满足的前置条件。
type Result struct {
	Success          bool                   `json:"success"`
	ExecutionPlan    *plan.ExecutionPlan    `json:"execution_plan,omitempty"`
	ValidationErrors []string               `json:"validation_errors"`
	StageStatus      map[string]StageStatus `json:"stage_status"`
	Metadata         Metadata               `json:"metadata"`

	failure *ValidationError
}

// Failure 返回导致失败的结构化错误，成功时为 nil。
func (r *Result) Failure() *ValidationError {
	if r == nil {
		return nil
	}
	return r.failure
}

func newResult(stageNames []string, total int) *Result {
	status := make(map[string]StageStatus, total)
	for _, name := range stageNames {
		status[name] = StatusPending
	}
	return &Result{
		ValidationErrors: []string{},
		StageStatus:      status,
		Metadata:         Metadata{TotalStages: total},
	}
}
