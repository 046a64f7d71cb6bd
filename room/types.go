package room

import (
	"sync"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
)

const DefaultCapacity = 5

type Member struct {
	ConnectionID string
	DisplayName  string
	Color        string
	Online       bool
}

func (m Member) User() protocol.User {
	return protocol.User{ID: m.ConnectionID, Username: m.DisplayName, Color: m.Color, IsOnline: m.Online}
}

// Room holds one room's members and its append-only action log.
// Every field below mu is guarded by it.
type Room struct {
	id string

	mu      sync.Mutex
	closed  bool
	order   []string
	members map[string]*Member
	log     []drawing.Action
}

// State is what a Hook sees of a room right after a mutation.
type State struct {
	RoomID string
	Member Member
	Roster []Member
	Log    []drawing.Action
}

// Hook runs with the room lock held. Anything it enqueues is ordered
// consistently with the room's action log.
type Hook func(State)

type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
}

type Info struct {
	RoomID       string `json:"roomId"`
	MaxUsers     int    `json:"maxUsers"`
	CurrentUsers int    `json:"currentUsers"`
	Actions      int    `json:"actions"`
}
