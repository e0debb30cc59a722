package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// JudgeSessionKey returns the cache key for a judge's login session
func (r *CacheKeyStruct) JudgeSessionKey(judgeID int) string {
	return fmt.Sprintf("judge:%d:session", judgeID)
}

// RoundCandidatesKey returns the cache key for a round's candidate listing
func (r *CacheKeyStruct) RoundCandidatesKey(roundID int) string {
	return fmt.Sprintf("listing:round:%d:candidates", roundID)
}

// ActiveCandidatesKey returns the cache key for the active candidate listing
func (r *CacheKeyStruct) ActiveCandidatesKey() string {
	return "listing:candidates:active"
}

// LoginAttemptsKey returns the rate limit counter key for a client IP
func (r *CacheKeyStruct) LoginAttemptsKey(ip string) string {
	return fmt.Sprintf("ratelimit:login:%s", ip)
}

var CacheKey = NewCacheKeyStruct()
