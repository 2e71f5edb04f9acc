package cache

import (
	"encoding/json"
	"fmt"

	"inspectra.app/offline-gateway/app/domain/offlinecache"
)

func encodeResponse(resp *offlinecache.Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return b, nil
}

func decodeResponse(b []byte) (*offlinecache.Response, error) {
	var resp offlinecache.Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}
