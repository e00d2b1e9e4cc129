package primitives

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ComputeVersion returns cfg.Version when set, otherwise the first 8 bytes
// of the SHA-256 of the JSON encoding, hex encoded. The same blueprint always
// yields the same version.
func ComputeVersion(cfg *GraphConfig) string {
	if cfg.Version != "" {
		return cfg.Version
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return "invalid"
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}
