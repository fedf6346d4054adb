package collab

import "sort"

// PresenceManager tracks the cursors of the users in a room. It is owned by
// the room goroutine and is not safe for concurrent use.
type PresenceManager struct {
	presences map[string]*PresencePayload // userID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(userID string, p *PresencePayload) {
	pm.presences[userID] = p
}

func (pm *PresenceManager) Remove(userID string) {
	delete(pm.presences, userID)
}

// Users returns the ids of users with a known presence, sorted.
func (pm *PresenceManager) Users() []string {
	ids := make([]string, 0, len(pm.presences))
	for id := range pm.presences {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StateMessage returns the presence.state message for a joining client, or
// nil when nobody has reported a cursor yet.
func (pm *PresenceManager) StateMessage() *Message {
	if len(pm.presences) == 0 {
		return nil
	}
	all := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		all[k] = v
	}
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: all})
}
