package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// MatchEvent records a new post that satisfied a pair's trigger predicate.
// Created exactly once per pair; immutable after creation.
type MatchEvent struct {
	EventID          string
	Handle           string
	Keyword          string
	Mint             string
	AmountSOL        float64
	PostID           string
	PostText         string
	DetectedAt       time.Time
	PurchaseExecuted bool
}

// ComputeEventID computes a deterministic event id.
// Formula: SHA256(handle|keyword|post_id), hex encoded (64 characters).
func ComputeEventID(handle, keyword, postID string) string {
	data := fmt.Sprintf("%s|%s|%s", handle, keyword, postID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
