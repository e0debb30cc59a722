package model

// Judge is the authenticated scorer, as identified by the competition API.
type Judge struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// JudgeLoginRequest is the payload for judge authentication.
type JudgeLoginRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// JudgeLoginResponse is returned after successful judge login.
type JudgeLoginResponse struct {
	Token string `json:"token"`
	Judge Judge  `json:"judge"`
}
