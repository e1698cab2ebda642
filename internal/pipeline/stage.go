package pipeline

import (
	"context"
	"time"
)

// 六个阶段的固定名称，同时用作 stage_status 映射的键。
const (
	StageSubscription = "subscription"
	StageBroker       = "broker"
	StageFunds        = "funds"
	StageSignal       = "signal"
	StageRisk         = "risk"
	StagePlan         = "plan"
)

// StageStatus 表示单个阶段的执行结果状态。
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
	StatusError     StageStatus = "error"
)

// Stage 描述管线中的一个校验/计算步骤。
// Run 返回 *ValidationError 表示规则失败；其他错误视为内部异常。
type Stage interface {
	Meta() StageMeta
	Run(ctx context.Context, st *State) error
}

// StageMeta 提供调度所需元信息。Timeout>0 时由编排器施加超时，
// 目前只有券商目录查询阶段需要。
type StageMeta struct {
	Name    string
	Timeout time.Duration
}
