package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

type envelope struct {
	ExpiresAt time.Time `json:"expires_at"`
	Value     []byte    `json:"value"`
}

func encodeEnvelope(value []byte, expiresAt time.Time) []byte {
	raw, _ := json.Marshal(envelope{ExpiresAt: expiresAt, Value: value})
	return raw
}

func decodeEnvelope(raw []byte) ([]byte, time.Time, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding cache envelope: %w", err)
	}
	return e.Value, e.ExpiresAt, nil
}
