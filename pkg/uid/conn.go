package uid

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateConnID returns a random identifier for one WebSocket connection,
// used to tell apart reconnects of the same player in logs and cleanup.
func GenerateConnID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
