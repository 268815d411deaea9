package relay

import "github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"

// Room holds the participants of one game session. The first player to join
// becomes the host; turn order follows join order.
type Room struct {
	ID string

	// Clients maps player id to connection.
	Clients map[string]*Client

	// Order is the join order, used for round-robin turns.
	Order []string

	// turn indexes Order for the player whose turn it is.
	turn int
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Clients: make(map[string]*Client),
	}
}

func (r *Room) add(c *Client) {
	if len(r.Clients) == 0 {
		c.Player.IsHost = true
	}
	r.Clients[c.Player.ID] = c
	r.Order = append(r.Order, c.Player.ID)
}

func (r *Room) remove(playerID string) {
	delete(r.Clients, playerID)
	for i, id := range r.Order {
		if id != playerID {
			continue
		}
		r.Order = append(r.Order[:i], r.Order[i+1:]...)
		if r.turn >= len(r.Order) {
			r.turn = 0
		}
		break
	}
}

func (r *Room) empty() bool {
	return len(r.Clients) == 0
}

// roster returns the full current participant list.
func (r *Room) roster() []signaling.Player {
	players := make([]signaling.Player, 0, len(r.Order))
	for _, id := range r.Order {
		if c, ok := r.Clients[id]; ok {
			players = append(players, c.Player)
		}
	}
	return players
}

// advanceTurn moves to the next player in join order and returns them.
func (r *Room) advanceTurn() (signaling.Player, bool) {
	if len(r.Order) == 0 {
		return signaling.Player{}, false
	}
	r.turn = (r.turn + 1) % len(r.Order)
	c, ok := r.Clients[r.Order[r.turn]]
	if !ok {
		return signaling.Player{}, false
	}
	return c.Player, true
}
