package model

// Candidate is a participant as listed by the competition API.
type Candidate struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number"`
	Category           string `json:"category"`
}

// SelectCandidateRequest is the payload for choosing the candidate to score.
type SelectCandidateRequest struct {
	CandidateID int `json:"candidate_id" binding:"required,min=1"`
}
