package bootstrap

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"net/url"
	"strings"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
)

const (
	RoomIDLength = 13
	roomAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var (
	adjectives = []string{"Happy", "Creative", "Artistic", "Bright", "Cool"}
	nouns      = []string{"Painter", "Artist", "Designer", "Creator", "Drawer"}
)

// RoomID picks the room from the "room" query parameter, or generates a
// fresh one when it is absent or unusable.
func RoomID(query url.Values) (id string, generated bool) {
	if existing := query.Get("room"); protocol.ValidRoomID(existing) {
		return existing, false
	}
	return NewRoomID(), true
}

func NewRoomID() string {
	var sb strings.Builder
	sb.Grow(RoomIDLength)
	base := big.NewInt(int64(len(roomAlphabet)))
	for range RoomIDLength {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		sb.WriteByte(roomAlphabet[n.Int64()])
	}
	return sb.String()
}

// DisplayName returns "<Adjective> <Noun>". A nil rng uses the global source.
func DisplayName(rng *mrand.Rand) string {
	intn := mrand.IntN
	if rng != nil {
		intn = rng.IntN
	}
	return adjectives[intn(len(adjectives))] + " " + nouns[intn(len(nouns))]
}

// InviteLink returns "<origin>/?room=<id>" for base. Any path, query or
// fragment on base is dropped.
func InviteLink(base, roomID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	invite := url.URL{
		Scheme:   u.Scheme,
		Host:     u.Host,
		Path:     "/",
		RawQuery: url.Values{"room": {roomID}}.Encode(),
	}
	return invite.String(), nil
}
