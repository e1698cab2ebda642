package signal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// requestSchema 只约束请求的结构形态；价格字段允许 number 或 string，
// entry/target/stop 是否齐备由管线的信号校验阶段判定。
const requestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["signal"],
  "properties": {
    "user_id": {"type": ["string", "number"]},
    "signal": {
      "type": "object",
      "required": ["symbol", "action"],
      "properties": {
        "symbol": {"type": "string", "minLength": 1},
        "action": {"type": "string", "pattern": "^\\s*(?i)(buy|sell)\\s*$"},
        "entry_price": {"type": ["number", "string"]},
        "target_price": {"type": ["number", "string"]},
        "stop_loss": {"type": ["number", "string"]},
        "quantity": {"type": ["number", "string"]},
        "timeframe": {"type": ["string", "null"]}
      }
    }
  }
}`

var compiledRequestSchema = jsonschema.MustCompileString("validation_request.json", requestSchema)

// CoerceSignalJSON 将裸信号对象或完整请求统一为请求 JSON。
func CoerceSignalJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("json 内容为空")
	}
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("json 格式无效")
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return "", fmt.Errorf("根节点必须是 JSON 对象")
	}
	if parsed.Get("signal").Exists() {
		return raw, nil
	}
	if strings.TrimSpace(parsed.Get("symbol").String()) == "" {
		return "", fmt.Errorf("根节点缺少 signal 对象或 symbol 字段")
	}
	return `{"signal":` + raw + `}`, nil
}

// CoerceSignalArrayJSON 将批量输入统一为请求数组 JSON。
// 支持三种形态：请求数组、{"signals":[...]} 包裹、单个对象。
func CoerceSignalArrayJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("json 内容为空")
	}
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("json 格式无效")
	}
	parsed := gjson.Parse(raw)
	if parsed.IsArray() {
		return raw, nil
	}
	if !parsed.IsObject() {
		return "", fmt.Errorf("根节点必须是 JSON 数组或对象")
	}
	if signals := parsed.Get("signals"); signals.Exists() {
		if !signals.IsArray() {
			return "", fmt.Errorf("signals 必须是数组")
		}
		return strings.TrimSpace(signals.Raw), nil
	}
	coerced, err := CoerceSignalJSON(raw)
	if err != nil {
		return "", err
	}
	return "[" + coerced + "]", nil
}

// ParseRequest 校验并解码一次校验请求：信封先过 JSON Schema，
// 再宽松解码并归一化。
func ParseRequest(raw string) (ValidationRequest, error) {
	coerced, err := CoerceSignalJSON(raw)
	if err != nil {
		return ValidationRequest{}, err
	}

	var doc any
	if err := json.Unmarshal([]byte(coerced), &doc); err != nil {
		return ValidationRequest{}, fmt.Errorf("decode request: %w", err)
	}
	if err := compiledRequestSchema.Validate(doc); err != nil {
		return ValidationRequest{}, fmt.Errorf("信号请求校验失败: %w", err)
	}

	var req ValidationRequest
	if err := json.Unmarshal([]byte(coerced), &req); err != nil {
		return ValidationRequest{}, fmt.Errorf("decode request: %w", err)
	}
	req.Signal.Normalize()
	return req, nil
}

// ParseRequests 解码批量请求。任一元素非法即整体报错，带上序号定位。
func ParseRequests(raw string) ([]ValidationRequest, error) {
	coerced, err := CoerceSignalArrayJSON(raw)
	if err != nil {
		return nil, err
	}

	items := gjson.Parse(coerced).Array()
	if len(items) == 0 {
		return nil, fmt.Errorf("信号数组为空")
	}
	out := make([]ValidationRequest, 0, len(items))
	for i, item := range items {
		req, err := ParseRequest(strings.TrimSpace(item.Raw))
		if err != nil {
			return nil, fmt.Errorf("信号#%d: %w", i+1, err)
		}
		out = append(out, req)
	}
	return out, nil
}
