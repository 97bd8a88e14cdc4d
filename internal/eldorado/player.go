package eldorado

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// TurnPhase of a player. A turn starts INACTIVE, moves on to MOVEMENT and then to BUYING,
// after which it is the next player's turn.
type TurnPhase uint8

const (
	INACTIVE TurnPhase = iota
	MOVEMENT
	BUYING
)

var phaseNames = [...]string{"Inactive", "Movement", "Buying"}

// String implements fmt.Stringer.
func (p TurnPhase) String() string {
	if int(p) >= len(phaseNames) {
		return fmt.Sprintf("TurnPhase(%d)", p)
	}
	return phaseNames[p]
}

// MaxCoins a player can accumulate in a turn: no card costs more.
const MaxCoins = 5

// player state within a game.
type player struct {
	deck      Deck
	phase     TurnPhase
	resources [NumResources]float32
	won       bool
}

func (p *player) reset(rng *rand.Rand) {
	p.deck.Reset(rng)
	p.phase = INACTIVE
	p.resources = [NumResources]float32{}
	p.won = false
}

// effectivePhase is the phase in which the player's next action is executed: an inactive
// player starts its turn in the movement phase.
func (p *player) effectivePhase() TurnPhase {
	if p.phase == INACTIVE {
		return MOVEMENT
	}
	return p.phase
}

// playForResources plays card c from the hand: in the movement phase the card's resources
// replace the current ones and count as one more card used; in the buying phase its coins
// (or half a coin, for cards without coins) are added.
func (p *player) playForResources(c CardType) {
	if p.deck.Play(c, c.RemovedOnPlay(false)) {
		p.resources[REMOVE]--
	}
	card := c.Card()
	switch p.phase {
	case MOVEMENT:
		copy(p.resources[:COIN+1], card.Resources[:])
		p.resources[USE]++
	case BUYING:
		coins := card.Resources[COIN]
		if coins == 0 {
			coins = 0.5
		}
		p.resources[COIN] = math32.Min(p.resources[COIN]+coins, MaxCoins)
	}
}

// tag one card of type c in the hand for removal (or none if tag is false).
func (p *player) tag(c CardType, tag bool) {
	p.resources[REMOVE] = float32(p.deck.Tag(c, tag))
}

// endTurn discards the played cards, refills the hand and clears the resources.
func (p *player) endTurn() {
	p.deck.DiscardPlayed()
	p.deck.Untag()
	if n := HandSize - p.deck.HandSize(); n > 0 {
		p.deck.Draw(n)
	}
	p.resources = [NumResources]float32{}
	p.phase = INACTIVE
}
