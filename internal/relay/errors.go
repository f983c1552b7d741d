package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrAllSourcesFailed 直连与全部转发均失败。
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrMalformedEnvelope 转发返回 2xx 但信封字段缺失或无法解析。
	ErrMalformedEnvelope = errors.New("malformed relay envelope")
	// ErrInvalidURL 目标地址不是绝对的 http(s) 地址。
	ErrInvalidURL = errors.New("invalid target url")
)

// AllSourcesFailedError 汇总一次逻辑请求的最终失败：原始地址、尝试次数与最后一个错误。
type AllSourcesFailedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *AllSourcesFailedError) Error() string {
	return fmt.Sprintf("all %d sources failed for %s: %v", e.Attempts, e.URL, e.Last)
}

func (e *AllSourcesFailedError) Is(target error) bool { return target == ErrAllSourcesFailed }

func (e *AllSourcesFailedError) Unwrap() error { return e.Last }
