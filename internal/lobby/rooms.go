package lobby

import (
	"slices"
	"time"
)

// room is the internal mutable form of Room. members mirrors the
// CurrentRoom field of each member's Player record; both sides are only
// changed together by enterLocked and leaveLocked.
type room struct {
	name        string
	createdBy   string
	createdTime time.Time
	members     map[string]struct{}
}

func newRoom(name, createdBy string, now time.Time) *room {
	return &room{
		name:        name,
		createdBy:   createdBy,
		createdTime: now,
		members:     make(map[string]struct{}),
	}
}

func (r *room) memberList() []string {
	names := make([]string, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *room) snapshot() Room {
	return Room{
		Name:        r.name,
		Members:     r.memberList(),
		CreatedBy:   r.createdBy,
		CreatedTime: r.createdTime,
	}
}

// enterLocked adds p to r. The caller must have called leaveLocked first so
// that p belongs to at most one room.
func (s *Store) enterLocked(p *Player, r *room) {
	r.members[p.Username] = struct{}{}
	p.CurrentRoom = r.name
	s.logger.Info("player joined room", "username", p.Username, "room", r.name, "members", len(r.members))
}

// leaveLocked removes p from its current room, if any, and deletes the room
// in the same step when it becomes empty. Calling it twice is harmless.
func (s *Store) leaveLocked(p *Player, c *changeSet) {
	name := p.CurrentRoom
	if name == "" {
		return
	}
	p.CurrentRoom = ""

	r, ok := s.rooms[name]
	if !ok {
		return
	}
	delete(r.members, p.Username)
	remaining := r.memberList()
	c.add(PlayerLeft{RoomName: name, Username: p.Username, Members: remaining})
	s.logger.Info("player left room", "username", p.Username, "room", name, "members", len(remaining))

	if len(remaining) == 0 {
		delete(s.rooms, name)
		c.roomsChanged = true
		s.logger.Info("room removed", "room", name, "reason", "empty")
		return
	}
	c.add(RoomDataChanged{Bundle: s.bundleLocked(name)})
}
