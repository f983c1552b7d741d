package apple

import (
	"encoding/json"
	"errors"
	"fmt"

	"mac-app-monitor/internal/model"
)

// ErrLookupFormat 表示 Lookup 响应缺少 resultCount 等必要字段。
var ErrLookupFormat = errors.New("lookup response format error")

type lookupResponse struct {
	ResultCount *int              `json:"resultCount"`
	Results     []model.AppDetail `json:"results"`
}

// DecodeLookup 解析 Lookup 响应，返回 (详情, 是否找到, 错误)。
// 结果为空不是错误，返回 found=false。
func DecodeLookup(payload []byte) (model.AppDetail, bool, error) {
	var resp lookupResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return model.AppDetail{}, false, fmt.Errorf("%w: %v", ErrLookupFormat, err)
	}
	if resp.ResultCount == nil {
		return model.AppDetail{}, false, fmt.Errorf("%w: resultCount missing", ErrLookupFormat)
	}
	if *resp.ResultCount < 1 || len(resp.Results) == 0 {
		return model.AppDetail{}, false, nil
	}
	return resp.Results[0], true, nil
}
