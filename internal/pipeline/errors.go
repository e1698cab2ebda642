package pipeline

import "fmt"

// Kind 标识一次校验失败的类别。
type Kind string

const (
	KindSubscriptionInsufficient Kind = "SubscriptionInsufficient"
	KindNoPrimaryBroker          Kind = "NoPrimaryBroker"
	KindBrokerDisconnected       Kind = "BrokerDisconnected"
	KindBrokerUnavailable        Kind = "BrokerUnavailable"
	KindInsufficientFunds        Kind = "InsufficientFunds"
	KindIncompleteSignal         Kind = "IncompleteSignal"
	KindInvalidPriceLevels       Kind = "InvalidPriceLevels"
	KindSignalQualityTooLow      Kind = "SignalQualityTooLow"
	KindPositionSizeZero         Kind = "PositionSizeZero"
	KindInternalError            Kind = "InternalError"
)

// ValidationError 封装一次阶段失败：规则不满足或内部异常。
// 两者都会立刻阻断管线，区别只体现在阶段状态上。
type ValidationError struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StageStatus 返回该失败对应的阶段状态：内部异常为 error，规则失败为 failed。
func (e *ValidationError) StageStatus() StageStatus {
	switch e.Kind {
	case KindInternalError, KindBrokerUnavailable:
		return StatusError
	default:
		return StatusFailed
	}
}

// Failf 构造一次规则失败。消息面向终端用户，保持英文。
func Failf(kind Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
