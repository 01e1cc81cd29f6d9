package xjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMarshal 表示序列化失败。
var ErrMarshal = errors.New("xjson: marshal failed")

// Pretty 将任意值序列化为缩进 JSON，用于日志和调试输出。
// 失败时返回 "<marshal error: ...>"。
func Pretty(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("<marshal error: %v>", err)
	}
	return string(data)
}

// Encode 将 v 以一行 JSON（pretty 时缩进）写入 w，末尾带换行，不转义 HTML 字符。
func Encode(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMarshal, err)
	}
	return nil
}
