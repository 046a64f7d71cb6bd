package room

import (
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/rs/zerolog/log"
)

const (
	MaxDisplayNameRunes = 32
	DefaultDisplayName  = "Anonymous"
)

// Registry maps room ids to rooms. The map lock is never held while a
// room lock is being acquired on the join path, so unrelated rooms never
// wait on each other.
type Registry struct {
	locker   sync.RWMutex
	rooms    map[string]*Room
	capacity int
	intn     func(int) int
}

func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		capacity: capacity,
	}
}

func (r *Registry) Capacity() int {
	return r.capacity
}

func (r *Registry) lookup(roomID string) *Room {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.rooms[roomID]
}

func (r *Registry) getOrCreate(roomID string) *Room {
	if rm := r.lookup(roomID); rm != nil {
		return rm
	}

	r.locker.Lock()
	defer r.locker.Unlock()
	if rm, ok := r.rooms[roomID]; ok {
		return rm
	}
	rm := &Room{id: roomID, members: make(map[string]*Member)}
	r.rooms[roomID] = rm
	log.Info().Str("room", roomID).Msg("room created")
	return rm
}

// Join registers connectionID in roomID, creating the room when needed.
// It returns the new member, a copy of the action log and the post-join
// roster. Joining a room that already holds Capacity members fails with
// ErrAtCapacity. Joining twice with the same connection is a no-op that
// returns the existing membership.
func (r *Registry) Join(roomID, connectionID, displayName string, after ...Hook) (Member, []drawing.Action, []Member, error) {
	for {
		rm := r.getOrCreate(roomID)
		rm.mu.Lock()
		if rm.closed {
			// lost a race with the last Leave; the next lookup creates a fresh room
			rm.mu.Unlock()
			continue
		}

		if existing, ok := rm.members[connectionID]; ok {
			state := rm.state(*existing, true)
			rm.mu.Unlock()
			return state.Member, state.Log, state.Roster, nil
		}

		if len(rm.members) >= r.capacity {
			rm.mu.Unlock()
			log.Debug().Str("room", roomID).Str("conn", connectionID).Msg("join rejected, room at capacity")
			return Member{}, nil, nil, ErrAtCapacity
		}

		held := make(map[string]bool, len(rm.members))
		for _, m := range rm.members {
			held[m.Color] = true
		}
		member := &Member{
			ConnectionID: connectionID,
			DisplayName:  NormalizeDisplayName(displayName),
			Color:        pickColor(held, r.intn),
			Online:       true,
		}
		rm.members[connectionID] = member
		rm.order = append(rm.order, connectionID)

		state := rm.state(*member, true)
		for _, hook := range after {
			hook(state)
		}
		rm.mu.Unlock()

		log.Info().
			Str("room", roomID).
			Str("conn", connectionID).
			Str("color", member.Color).
			Int("members", len(state.Roster)).
			Msg("member joined")
		return state.Member, state.Log, state.Roster, nil
	}
}

// Leave removes connectionID from roomID and destroys the room once it is
// empty. Leaving a room one is not in reports removed=false.
func (r *Registry) Leave(roomID, connectionID string, after ...Hook) ([]Member, bool) {
	rm := r.lookup(roomID)
	if rm == nil {
		return nil, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	member, ok := rm.members[connectionID]
	if !ok {
		return nil, false
	}
	delete(rm.members, connectionID)
	rm.order = slices.DeleteFunc(rm.order, func(id string) bool { return id == connectionID })

	state := rm.state(*member, false)
	for _, hook := range after {
		hook(state)
	}

	log.Info().Str("room", roomID).Str("conn", connectionID).Int("members", len(state.Roster)).Msg("member left")

	if len(rm.members) == 0 {
		rm.closed = true
		rm.log = nil
		r.locker.Lock()
		if r.rooms[roomID] == rm {
			delete(r.rooms, roomID)
		}
		r.locker.Unlock()
		log.Info().Str("room", roomID).Msg("room destroyed")
	}
	return state.Roster, true
}

// Append adds action to the room's log. A room that vanished is a no-op.
func (r *Registry) Append(roomID string, action drawing.Action, after ...Hook) bool {
	return r.withRoom(roomID, func(rm *Room) {
		rm.log = append(rm.log, action.Clone())
		if len(after) == 0 {
			return
		}
		state := rm.state(Member{}, false)
		for _, hook := range after {
			hook(state)
		}
	})
}

// Clear truncates the log. Members are untouched.
func (r *Registry) Clear(roomID string, after ...Hook) bool {
	return r.withRoom(roomID, func(rm *Room) {
		rm.log = nil
		state := rm.state(Member{}, false)
		for _, hook := range after {
			hook(state)
		}
	})
}

// Snapshot returns a copy of the room's log.
func (r *Registry) Snapshot(roomID string, after ...Hook) ([]drawing.Action, bool) {
	var snapshot []drawing.Action
	ok := r.withRoom(roomID, func(rm *Room) {
		state := rm.state(Member{}, true)
		snapshot = state.Log
		for _, hook := range after {
			hook(state)
		}
	})
	return snapshot, ok
}

func (r *Registry) Members(roomID string) ([]Member, bool) {
	var members []Member
	ok := r.withRoom(roomID, func(rm *Room) {
		members = rm.roster()
	})
	return members, ok
}

func (r *Registry) Info(roomID string) (Info, bool) {
	var info Info
	ok := r.withRoom(roomID, func(rm *Room) {
		info = Info{
			RoomID:       roomID,
			MaxUsers:     r.capacity,
			CurrentUsers: len(rm.members),
			Actions:      len(rm.log),
		}
	})
	return info, ok
}

func (r *Registry) Stats() Stats {
	r.locker.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.locker.RUnlock()

	stats := Stats{}
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.closed {
			stats.Rooms++
			stats.Members += len(rm.members)
		}
		rm.mu.Unlock()
	}
	return stats
}

func (r *Registry) withRoom(roomID string, fn func(rm *Room)) bool {
	rm := r.lookup(roomID)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return false
	}
	fn(rm)
	return true
}

// caller holds rm.mu
func (rm *Room) roster() []Member {
	out := make([]Member, 0, len(rm.order))
	for _, id := range rm.order {
		out = append(out, *rm.members[id])
	}
	return out
}

// caller holds rm.mu
func (rm *Room) state(member Member, withLog bool) State {
	s := State{RoomID: rm.id, Member: member, Roster: rm.roster()}
	if withLog {
		s.Log = drawing.CloneAll(rm.log)
	}
	return s
}

// NormalizeDisplayName trims name and caps it at MaxDisplayNameRunes,
// falling back to DefaultDisplayName when nothing is left.
func NormalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxDisplayNameRunes {
		name = strings.TrimSpace(string([]rune(name)[:MaxDisplayNameRunes]))
	}
	if name == "" {
		return DefaultDisplayName
	}
	return name
}
