package dto

type ErrorResponse struct {
	Error string `json:"error"`
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}
