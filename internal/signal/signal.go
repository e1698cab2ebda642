// Package signal models the trade signals submitted to the pre-trade
// validation pipeline and their tolerant JSON intake.
package signal

import (
	"encoding/json"
	"strings"

	"github.com/secira/TargetCapital-sub000/internal/pkg/convert"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// TradeSignal 表示调用方提交的一条原始交易信号。管线只读不改。
type TradeSignal struct {
	Symbol      string  `json:"symbol"`
	Action      string  `json:"action"` // buy / sell
	EntryPrice  float64 `json:"entry_price"`
	TargetPrice float64 `json:"target_price"`
	StopLoss    float64 `json:"stop_loss"`
	Quantity    float64 `json:"quantity,omitempty"` // 建议数量，可缺省
	Timeframe   string  `json:"timeframe,omitempty"`
}

// ValidationRequest 是一次校验调用的完整入参。
type ValidationRequest struct {
	UserID string      `json:"user_id"`
	Signal TradeSignal `json:"signal"`
}

// IsBuy reports whether the normalized action is a buy.
func (s TradeSignal) IsBuy() bool { return s.Action == ActionBuy }

// IsSell reports whether the normalized action is a sell.
func (s TradeSignal) IsSell() bool { return s.Action == ActionSell }

// Normalize 去除符号与方向字段的大小写/空白差异。
func (s *TradeSignal) Normalize() {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.Action = strings.ToLower(strings.TrimSpace(s.Action))
	s.Timeframe = strings.ToLower(strings.TrimSpace(s.Timeframe))
}

// UnmarshalJSON 宽松解码：数值字段同时接受 number 和 string。
func (s *TradeSignal) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Symbol = convert.ToString(raw["symbol"])
	s.Action = convert.ToString(raw["action"])
	s.EntryPrice = convert.ToFloat64(raw["entry_price"])
	s.TargetPrice = convert.ToFloat64(raw["target_price"])
	s.StopLoss = convert.ToFloat64(raw["stop_loss"])
	s.Quantity = convert.ToFloat64(raw["quantity"])
	s.Timeframe = convert.ToString(raw["timeframe"])
	return nil
}

// UnmarshalJSON 同样宽松处理 user_id（数值形式的 ID 转为字符串）。
func (r *ValidationRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID any             `json:"user_id"`
		Signal json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.UserID = convert.ToString(raw.UserID)
	if len(raw.Signal) > 0 {
		if err := json.Unmarshal(raw.Signal, &r.Signal); err != nil {
			return err
		}
	}
	return nil
}
