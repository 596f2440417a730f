package entity

import "time"

// GenerationStatus 生成结果状态
type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "success"
	GenerationFailed    GenerationStatus = "error"
)

// GenerationUsageEvent 单次服务端生成的用量流水
type GenerationUsageEvent struct {
	ID               string           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RequestID        string           `json:"request_id" gorm:"type:varchar(64);index"`
	Style            Style            `json:"style" gorm:"type:varchar(16);index;not null"`
	Mode             Mode             `json:"mode" gorm:"type:varchar(16);not null"`
	Provider         string           `json:"provider" gorm:"type:varchar(32);not null"`
	Model            string           `json:"model" gorm:"type:varchar(64);not null"`
	Status           GenerationStatus `json:"status" gorm:"type:varchar(16);not null"`
	ContextRunes     int              `json:"context_runes" gorm:"not null;default:0"`
	TokensPrompt     int              `json:"tokens_prompt" gorm:"not null;default:0"`
	TokensCompletion int              `json:"tokens_completion" gorm:"not null;default:0"`
	DurationMs       int              `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt        time.Time        `json:"created_at" gorm:"autoCreateTime;index"`
}

func (GenerationUsageEvent) TableName() string {
	return "generation_usage_events"
}

// StyleUsage 按风格聚合的用量
type StyleUsage struct {
	Style            Style `json:"style"`
	Requests         int64 `json:"requests"`
	Failures         int64 `json:"failures"`
	TokensPrompt     int64 `json:"tokens_prompt"`
	TokensCompletion int64 `json:"tokens_completion"`
}
