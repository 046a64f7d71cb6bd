package room

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Sender is the outbound half of a connection as the relay sees it.
type Sender interface {
	ID() string
	SendReliable(data []byte) error
	SendBestEffort(data []byte) bool
	Close(code string)
}

// peer state other than sender is owned by the connection's read pump.
type peer struct {
	sender Sender
	roomID string
	member Member
	chat   *rate.Limiter
}

// Relay applies inbound client events to the registry and fans the
// resulting server events out to the right members.
type Relay struct {
	registry *Registry

	locker sync.RWMutex
	peers  map[string]*peer

	newMessageID func() string
	now          func() time.Time
}

func NewRelay(registry *Registry) *Relay {
	return &Relay{
		registry:     registry,
		peers:        make(map[string]*peer),
		newMessageID: uuid.NewString,
		now:          time.Now,
	}
}

func (r *Relay) Registry() *Registry {
	return r.registry
}

func (r *Relay) Attach(s Sender) {
	r.locker.Lock()
	defer r.locker.Unlock()
	r.peers[s.ID()] = &peer{sender: s, chat: rate.NewLimiter(1, 5)}
}

// Detach is the disconnect path: the connection leaves its room and is
// forgotten.
func (r *Relay) Detach(connID string) {
	p := r.peer(connID)
	if p == nil {
		return
	}
	if p.roomID != "" {
		r.leave(p)
	}
	r.locker.Lock()
	delete(r.peers, connID)
	r.locker.Unlock()
}

// CloseAll closes every attached connection with code.
func (r *Relay) CloseAll(code string) {
	r.locker.RLock()
	defer r.locker.RUnlock()
	for _, p := range r.peers {
		p.sender.Close(code)
	}
}

// HandleRaw decodes one inbound frame. Frames that fail validation are
// answered with an error event and never reach the registry.
func (r *Relay) HandleRaw(connID string, data []byte) {
	ev, err := protocol.DecodeClient(data)
	if err != nil {
		log.Debug().Err(err).Str("conn", connID).Msg("rejected inbound event")
		r.send(connID, protocol.MakePacketError(errorCode(err), err.Error()), true)
		return
	}
	r.Handle(connID, ev)
}

func (r *Relay) Handle(connID string, ev protocol.ClientEvent) {
	p := r.peer(connID)
	if p == nil {
		log.Warn().Str("conn", connID).Str("type", string(ev.Type())).Msg("event from unknown connection")
		return
	}

	switch e := ev.(type) {
	case protocol.JoinRoom:
		r.join(p, e)
	case protocol.LeaveRoom:
		if r.inRoom(p, e) {
			r.leave(p)
		}
	case protocol.DrawAction:
		if r.inRoom(p, e) {
			r.draw(p, e.Action)
		}
	case protocol.CursorMove:
		if r.inRoom(p, e) {
			r.cursor(p, e.X, e.Y)
		}
	case protocol.SendMessage:
		if r.inRoom(p, e) {
			r.chat(p, e.Message)
		}
	case protocol.ClearCanvas:
		if r.inRoom(p, e) {
			r.clear(p)
		}
	case protocol.RequestCanvasState:
		if r.inRoom(p, e) {
			r.canvasState(p)
		}
	}
}

func (r *Relay) join(p *peer, e protocol.JoinRoom) {
	id := p.sender.ID()

	if p.roomID == e.RoomID {
		// already a member; answer with the current state again
		r.registry.Snapshot(e.RoomID, func(s State) {
			r.send(id, protocol.MakePacketJoined(id, p.member.Color, s.Log), true)
			r.send(id, usersList(s.Roster), true)
		})
		return
	}
	if p.roomID != "" {
		r.leave(p)
	}

	capacity := r.registry.Capacity()
	member, _, _, err := r.registry.Join(e.RoomID, id, e.Username, func(s State) {
		r.send(id, protocol.MakePacketJoined(id, s.Member.Color, s.Log), true)
		r.broadcast(s.Roster, id, protocol.MakePacketUserJoined(id, s.Member.DisplayName, s.Member.Color), true)
		r.broadcast(s.Roster, "", usersList(s.Roster), true)
		r.broadcast(s.Roster, "", protocol.MakePacketRoomInfo(capacity, len(s.Roster)), true)
	})
	if errors.Is(err, ErrAtCapacity) {
		r.send(id, protocol.MakePacketRoomFull(capacity), true)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room", e.RoomID).Str("conn", id).Msg("join failed")
		return
	}

	p.roomID = e.RoomID
	p.member = member
}

func (r *Relay) leave(p *peer) {
	id := p.sender.ID()
	capacity := r.registry.Capacity()
	r.registry.Leave(p.roomID, id, func(s State) {
		r.broadcast(s.Roster, "", protocol.MakePacketUserLeft(id), true)
		r.broadcast(s.Roster, "", usersList(s.Roster), true)
		r.broadcast(s.Roster, "", protocol.MakePacketRoomInfo(capacity, len(s.Roster)), true)
	})
	p.roomID = ""
	p.member = Member{}
}

func (r *Relay) draw(p *peer, action drawing.Action) {
	id := p.sender.ID()
	ok := r.registry.Append(p.roomID, action, func(s State) {
		r.broadcast(s.Roster, id, protocol.MakePacketDrawAction(id, action), false)
	})
	if !ok {
		log.Debug().Str("room", p.roomID).Str("conn", id).Msg("draw for vanished room dropped")
	}
}

func (r *Relay) cursor(p *peer, x, y float64) {
	members, ok := r.registry.Members(p.roomID)
	if !ok {
		return
	}
	id := p.sender.ID()
	r.broadcast(members, id, protocol.MakePacketCursorMove(id, x, y, p.member.DisplayName, p.member.Color), false)
}

func (r *Relay) chat(p *peer, message string) {
	id := p.sender.ID()
	if !p.chat.Allow() {
		r.send(id, protocol.MakePacketError("rate-limited", "Too many messages, slow down."), true)
		return
	}
	members, ok := r.registry.Members(p.roomID)
	if !ok {
		return
	}
	msg := protocol.MakePacketChatMessage(
		r.newMessageID(),
		id,
		p.member.DisplayName,
		p.member.Color,
		strings.TrimSpace(message),
		r.now(),
	)
	r.broadcast(members, "", msg, true)
}

func (r *Relay) clear(p *peer) {
	r.registry.Clear(p.roomID, func(s State) {
		r.broadcast(s.Roster, "", protocol.MakePacketCanvasClear(), true)
	})
	log.Info().Str("room", p.roomID).Str("conn", p.sender.ID()).Msg("canvas cleared")
}

func (r *Relay) canvasState(p *peer) {
	id := p.sender.ID()
	r.registry.Snapshot(p.roomID, func(s State) {
		r.send(id, protocol.MakePacketCanvasState(s.Log), true)
	})
}

func (r *Relay) inRoom(p *peer, ev protocol.ClientEvent) bool {
	if p.roomID == "" {
		log.Debug().Str("conn", p.sender.ID()).Str("type", string(ev.Type())).Msg("event before join ignored")
		return false
	}
	if ev.Room() != p.roomID {
		log.Debug().
			Str("conn", p.sender.ID()).
			Str("room", p.roomID).
			Str("target", ev.Room()).
			Str("type", string(ev.Type())).
			Msg("event for another room ignored")
		return false
	}
	return true
}

func (r *Relay) peer(connID string) *peer {
	r.locker.RLock()
	defer r.locker.RUnlock()
	return r.peers[connID]
}

func (r *Relay) send(connID string, ev protocol.ServerEvent, reliable bool) {
	data, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Msg("encode failed")
		return
	}
	r.deliver(connID, data, reliable)
}

// broadcast encodes ev once and hands it to every member but except.
func (r *Relay) broadcast(roster []Member, except string, ev protocol.ServerEvent, reliable bool) {
	data, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Msg("encode failed")
		return
	}
	for _, m := range roster {
		if m.ConnectionID == except {
			continue
		}
		r.deliver(m.ConnectionID, data, reliable)
	}
}

func (r *Relay) deliver(connID string, data []byte, reliable bool) {
	p := r.peer(connID)
	if p == nil {
		return
	}

	if !reliable {
		if !p.sender.SendBestEffort(data) {
			log.Trace().Str("conn", connID).Msg("best-effort frame dropped")
		}
		return
	}

	if err := p.sender.SendReliable(data); errors.Is(err, ErrSendBufferFull) {
		log.Warn().Str("conn", connID).Msg("send buffer full, closing connection")
		p.sender.Close(ErrSendBufferFull.Error())
	}
}

func usersList(roster []Member) protocol.UsersList {
	users := make([]protocol.User, 0, len(roster))
	for _, m := range roster {
		users = append(users, m.User())
	}
	return protocol.MakePacketUsersList(users)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, drawing.ErrMalformedAction):
		return drawing.ErrMalformedAction.Error()
	case errors.Is(err, protocol.ErrUnknownEvent):
		return protocol.ErrUnknownEvent.Error()
	default:
		return protocol.ErrInvalidPayload.Error()
	}
}
