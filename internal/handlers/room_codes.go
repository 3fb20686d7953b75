// internal/handlers/room_codes.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/skygrid/skygrid/internal/gameerr"
)

// codeAlphabet excludes look-alikes (0/O, 1/I/L) so codes survive being read
// out loud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 5

// newRoomCode generates a join code not currently in use. Collisions are
// retried a bounded number of times; with a 31^5 code space exhaustion means
// something is badly wrong upstream.
func (gs *GameServer) newRoomCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 50; attempt++ {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, err := gs.Store.Load(ctx, code); errors.Is(err, gameerr.ErrGameNotFound) {
			return code, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not allocate a free room code")
}
