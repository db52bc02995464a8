package dto

import "time"

type CreateBetRequest struct {
	Title    string    `json:"title"`
	Criteria string    `json:"criteria"`
	Stake    int64     `json:"stake"`
	Deadline time.Time `json:"deadline"`
}

type ChallengeRequest struct {
	Amount int64 `json:"amount"`
}

type ProofRequest struct {
	Comment  string `json:"comment"`
	MediaURL string `json:"media_url"`
}

type VoteRequest struct {
	Approve bool `json:"approve"`
}
