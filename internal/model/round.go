package model

// Round is a competition phase. Scoring is only permitted while IsActive.
type Round struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	IsActive bool   `json:"is_active"`
}

// SelectRoundRequest is the payload for choosing the round to judge.
type SelectRoundRequest struct {
	RoundID int `json:"round_id" binding:"required,min=1"`
}
