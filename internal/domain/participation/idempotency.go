package participation

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// IdempotencyKey derives a stable key for one logical action. A caller that
// times out before learning the outcome can retry with the same key and get
// the recorded result back instead of reapplying the action.
func IdempotencyKey(eventID, userID uuid.UUID, action Action, expectedVersion *int) string {
	h, _ := blake2b.New256(nil)

	h.Write(eventID[:])
	h.Write(userID[:])
	h.Write([]byte{byte(action)})

	if expectedVersion != nil {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(*expectedVersion))
		h.Write(buf[:])
	}

	return hex.EncodeToString(h.Sum(nil))
}
