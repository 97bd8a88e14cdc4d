package eldorado

import (
	"math/rand/v2"
	"slices"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
)

// HandSize is the number of cards a player's hand is refilled to at the end of a turn.
const HandSize = 4

// startingDeck of every player.
var startingDeck = [...]CardType{
	EXPLORER, EXPLORER, EXPLORER,
	SAILOR,
	TRAVELER, TRAVELER, TRAVELER, TRAVELER,
}

// handCard is a card in the hand, possibly tagged to be removed from the deck.
type handCard struct {
	Type   CardType
	Tagged bool
}

// Deck of one player: it tracks all its cards and in which pile they are.
type Deck struct {
	rng *rand.Rand

	all     [NumCardTypes]uint8
	draw    []CardType
	hand    []handCard
	played  []CardType
	discard []CardType
}

// Reset the deck to the starting deck, shuffled, and draw the first hand.
func (d *Deck) Reset(rng *rand.Rand) {
	d.rng = rng
	d.all = [NumCardTypes]uint8{}
	d.draw = d.draw[:0]
	d.hand = d.hand[:0]
	d.played = d.played[:0]
	d.discard = append(d.discard[:0], startingDeck[:]...)
	for _, c := range startingDeck {
		d.all[c]++
	}
	d.Draw(HandSize)
}

// Draw n cards into the hand. If the draw pile doesn't have enough cards, the discard pile
// is shuffled and put under it. If there are still not enough cards, all the remaining are drawn.
func (d *Deck) Draw(n int) {
	if len(d.draw) < n {
		d.rng.Shuffle(len(d.discard), func(i, j int) {
			d.discard[i], d.discard[j] = d.discard[j], d.discard[i]
		})
		d.draw = append(d.draw, d.discard...)
		d.discard = d.discard[:0]
	}
	n = min(n, len(d.draw))
	for _, c := range d.draw[:n] {
		d.hand = append(d.hand, handCard{Type: c})
	}
	d.draw = slices.Delete(d.draw, 0, n)
}

// HandSize returns the number of cards in the hand.
func (d *Deck) HandSize() int {
	return len(d.hand)
}

// Hand returns the types of the cards in the hand, in the order drawn.
func (d *Deck) Hand() []CardType {
	hand := make([]CardType, len(d.hand))
	for ii, c := range d.hand {
		hand[ii] = c.Type
	}
	return hand
}

// InHand returns whether a card of the given type is in the hand.
func (d *Deck) InHand(c CardType) bool {
	return d.findInHand(c) >= 0
}

func (d *Deck) findInHand(c CardType) int {
	return slices.IndexFunc(d.hand, func(hc handCard) bool { return hc.Type == c })
}

// Play moves a card of the given type from the hand to the played pile, or out of the deck if
// removed is set. It returns whether the card was tagged for removal.
func (d *Deck) Play(c CardType, removed bool) (wasTagged bool) {
	idx := d.findInHand(c)
	if idx < 0 {
		return false
	}
	wasTagged = d.hand[idx].Tagged
	d.hand = slices.Delete(d.hand, idx, idx+1)
	if removed {
		d.all[c]--
	} else {
		d.played = append(d.played, c)
	}
	return
}

// Tag one card of the given type in the hand for removal, clearing any previous tags.
// It returns the number of tagged cards.
func (d *Deck) Tag(c CardType, tag bool) int {
	d.Untag()
	if !tag {
		return 0
	}
	idx := d.findInHand(c)
	if idx < 0 {
		return 0
	}
	d.hand[idx].Tagged = true
	return 1
}

// Untag all cards in the hand.
func (d *Deck) Untag() {
	for ii := range d.hand {
		d.hand[ii].Tagged = false
	}
}

// RemoveTagged removes up to n cards tagged for removal from the hand and from the deck. It
// returns the number of removed cards.
func (d *Deck) RemoveTagged(n int) (removed int) {
	d.hand = slices.DeleteFunc(d.hand, func(hc handCard) bool {
		if hc.Tagged && removed < n {
			removed++
			d.all[hc.Type]--
			return true
		}
		return false
	})
	return
}

// Add a new card to the deck, in the discard pile.
func (d *Deck) Add(c CardType) {
	d.discard = append(d.discard, c)
	d.all[c]++
}

// DiscardPlayed moves the played cards to the discard pile.
func (d *Deck) DiscardPlayed() {
	d.discard = append(d.discard, d.played...)
	d.played = d.played[:0]
}

// Size returns the total number of cards in the deck.
func (d *Deck) Size() (n int) {
	for _, count := range d.all {
		n += int(count)
	}
	return
}

// Count returns the number of cards of type c owned by the player, in any pile.
func (d *Deck) Count(c CardType) int {
	return int(d.all[c])
}

// Observe writes the card counts per pile. Active holds the cards of the hand tagged for removal.
func (d *Deck) Observe(obs *batch.DeckObs) {
	obs.Reset()
	for _, c := range d.draw {
		obs.Draw[c]++
	}
	for _, hc := range d.hand {
		obs.Hand[hc.Type]++
		if hc.Tagged {
			obs.Active[hc.Type]++
		}
	}
	for _, c := range d.played {
		obs.Played[c]++
	}
	for _, c := range d.discard {
		obs.Discard[c]++
	}
}
