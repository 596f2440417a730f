package dto

// GenerateRequest 续写请求，字段名与编辑器前端约定保持一致
type GenerateRequest struct {
	ContextText string `json:"contextText"`
	Style       string `json:"style,omitempty"`
	IsSelection bool   `json:"isSelection"`
}

// GenerateResponse 续写成功响应
type GenerateResponse struct {
	Content string `json:"content"`
}

// GenerateErrorResponse 续写失败响应
type GenerateErrorResponse struct {
	Error string `json:"error"`
}

// StyleResponse 写作风格
type StyleResponse struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Default bool   `json:"default"`
}

// StyleListResponse 写作风格列表
type StyleListResponse struct {
	Styles []StyleResponse `json:"styles"`
}

// StyleUsageResponse 单个风格的用量汇总
type StyleUsageResponse struct {
	Style            string `json:"style"`
	Requests         int64  `json:"requests"`
	Failures         int64  `json:"failures"`
	TokensPrompt     int64  `json:"tokens_prompt"`
	TokensCompletion int64  `json:"tokens_completion"`
}

// UsageSummaryResponse 用量汇总
type UsageSummaryResponse struct {
	Window string               `json:"window"`
	Since  string               `json:"since"`
	Styles []StyleUsageResponse `json:"styles"`
}
