package signal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProductType 标识订单的持仓品种：日内平仓或可隔夜持有。
type ProductType string

const (
	ProductIntraday     ProductType = "intraday"
	ProductCarryForward ProductType = "carry_forward"
)

// Timeframe 描述信号声明的周期及其对应的持仓品种。
type Timeframe struct {
	Key      string
	Duration time.Duration
	Product  ProductType
}

var supportedTimeframes = map[string]Timeframe{
	"1m":  {Key: "1m", Duration: time.Minute, Product: ProductIntraday},
	"3m":  {Key: "3m", Duration: 3 * time.Minute, Product: ProductIntraday},
	"5m":  {Key: "5m", Duration: 5 * time.Minute, Product: ProductIntraday},
	"15m": {Key: "15m", Duration: 15 * time.Minute, Product: ProductIntraday},
	"30m": {Key: "30m", Duration: 30 * time.Minute, Product: ProductIntraday},
	"1h":  {Key: "1h", Duration: time.Hour, Product: ProductIntraday},
	"4h":  {Key: "4h", Duration: 4 * time.Hour, Product: ProductCarryForward},
	"1d":  {Key: "1d", Duration: 24 * time.Hour, Product: ProductCarryForward},
	"1w":  {Key: "1w", Duration: 7 * 24 * time.Hour, Product: ProductCarryForward},
}

// ParseTimeframe 返回标准化周期定义。
func ParseTimeframe(input string) (Timeframe, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	tf, ok := supportedTimeframes[key]
	if !ok {
		return Timeframe{}, fmt.Errorf("不支持的周期: %s", input)
	}
	return tf, nil
}

// SupportedTimeframes 返回所有支持的 key（排序后）。
func SupportedTimeframes() []string {
	keys := make([]string, 0, len(supportedTimeframes))
	for k := range supportedTimeframes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProductFor 由声明的周期推断持仓品种。未声明或无法识别的周期
// 一律按 carry_forward 处理，避免被动触发日内强平。
func ProductFor(timeframe string) ProductType {
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return ProductCarryForward
	}
	return tf.Product
}
