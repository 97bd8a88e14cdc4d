package eldorado

import (
	"fmt"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/gomlx/exceptions"
)

// Resource is both what a card provides and what a hex requires to be entered.
type Resource uint8

const (
	MACHETE Resource = iota
	PADDLE
	COIN

	// USE requires discarding cards: it counts the cards played during the turn.
	USE

	// REMOVE requires removing cards from the deck: it counts the cards tagged for removal.
	REMOVE

	NumResources
)

var resourceNames = [NumResources]string{"Machete", "Paddle", "Coin", "Use", "Remove"}

// String implements fmt.Stringer.
func (r Resource) String() string {
	if r >= NumResources {
		return fmt.Sprintf("Resource(%d)", r)
	}
	return resourceNames[r]
}

// CardType enumerates the 21 types of cards. The first 3 values of each card's resources are
// Machete, Paddle and Coin.
type CardType uint8

const (
	EXPLORER CardType = iota
	SCOUT
	TRAILBLAZER
	PIONEER
	GIANT_MACHETE

	SAILOR
	CAPTAIN

	TRAVELER
	PHOTOGRAPHER
	JOURNALIST
	TREASURE_CHEST
	MILLIONAIRE

	JACK_OF_ALL_TRADES
	ADVENTURER
	PROP_PLANE

	TRANSMITTER
	CARTOGRAPHER
	COMPASS
	SCIENTIST
	TRAVEL_LOG
	NATIVE

	NumCardTypes
)

// Special abilities of cards, played through the PlaySpecial action.
type Special uint8

const (
	NoSpecial Special = iota

	// SpecialTransmit: the next action takes any available card from the shop for free.
	SpecialTransmit

	// SpecialDraw: draw Card.Draw cards.
	SpecialDraw

	// SpecialDrawAndRemove: draw Card.Draw cards, then the next action removes cards from the hand.
	SpecialDrawAndRemove

	// SpecialNative: the next action moves to any adjacent passable hex, for free.
	SpecialNative
)

var specialNames = [...]string{"None", "Transmit", "Draw", "DrawAndRemove", "Native"}

// String implements fmt.Stringer.
func (s Special) String() string {
	if int(s) >= len(specialNames) {
		return fmt.Sprintf("Special(%d)", s)
	}
	return specialNames[s]
}

// Card describes one card type.
type Card struct {
	Name      string
	Cost      int
	SingleUse bool
	Resources [3]float32
	Special   Special

	// Draw is the number of cards drawn when the special ability is used.
	Draw int

	// Removes is the number of cards that can be removed after the special ability.
	Removes int
}

// Cards holds the description of each CardType.
var Cards = [NumCardTypes]Card{
	EXPLORER:      {Name: "Explorer", Resources: [3]float32{1, 0, 0}},
	SCOUT:         {Name: "Scout", Cost: 1, Resources: [3]float32{2, 0, 0}},
	TRAILBLAZER:   {Name: "Trailblazer", Cost: 3, Resources: [3]float32{3, 0, 0}},
	PIONEER:       {Name: "Pioneer", Cost: 5, Resources: [3]float32{5, 0, 0}},
	GIANT_MACHETE: {Name: "GiantMachete", Cost: 3, SingleUse: true, Resources: [3]float32{6, 0, 0}},

	SAILOR:  {Name: "Sailor", Resources: [3]float32{0, 1, 0}},
	CAPTAIN: {Name: "Captain", Cost: 2, Resources: [3]float32{0, 3, 0}},

	TRAVELER:       {Name: "Traveler", Resources: [3]float32{0, 0, 1}},
	PHOTOGRAPHER:   {Name: "Photographer", Cost: 2, Resources: [3]float32{0, 0, 3}},
	JOURNALIST:     {Name: "Journalist", Cost: 3, Resources: [3]float32{0, 0, 3}},
	TREASURE_CHEST: {Name: "TreasureChest", Cost: 3, SingleUse: true, Resources: [3]float32{0, 0, 4}},
	MILLIONAIRE:    {Name: "Millionaire", Cost: 5, Resources: [3]float32{0, 0, 4}},

	JACK_OF_ALL_TRADES: {Name: "JackOfAllTrades", Cost: 2, Resources: [3]float32{1, 1, 1}},
	ADVENTURER:         {Name: "Adventurer", Cost: 4, Resources: [3]float32{2, 2, 2}},
	PROP_PLANE:         {Name: "PropPlane", Cost: 4, SingleUse: true, Resources: [3]float32{4, 4, 4}},

	TRANSMITTER:  {Name: "Transmitter", Cost: 4, SingleUse: true, Special: SpecialTransmit},
	CARTOGRAPHER: {Name: "Cartographer", Cost: 4, Special: SpecialDraw, Draw: 2},
	COMPASS:      {Name: "Compass", Cost: 2, SingleUse: true, Special: SpecialDraw, Draw: 3},
	SCIENTIST:    {Name: "Scientist", Cost: 4, Special: SpecialDrawAndRemove, Draw: 1, Removes: 1},
	TRAVEL_LOG:   {Name: "TravelLog", Cost: 3, SingleUse: true, Special: SpecialDrawAndRemove, Draw: 2, Removes: 2},
	NATIVE:       {Name: "Native", Cost: 5, Special: SpecialNative},
}

// String implements fmt.Stringer.
func (c CardType) String() string {
	if c >= NumCardTypes {
		return fmt.Sprintf("CardType(%d)", c)
	}
	return Cards[c].Name
}

// Card returns the description of the card type.
func (c CardType) Card() *Card {
	return &Cards[c]
}

// RemovedOnPlay returns whether the card leaves the deck once played. Single use cards with
// a special ability are only removed when the ability is used.
func (c CardType) RemovedOnPlay(special bool) bool {
	card := &Cards[c]
	return card.SingleUse && (card.Special == NoSpecial || special)
}

const (
	// CardsPerType available in the shop at the start of a game.
	CardsPerType = 3

	// MarketSlots is the number of card types that can be on the market board at the same time.
	MarketSlots = 6
)

// ShopCards lists the buyable card types, in shop index order.
var ShopCards = [batch.NumBuyableTypes]CardType{
	SCOUT, TRAILBLAZER, PIONEER, GIANT_MACHETE,
	CAPTAIN,
	PHOTOGRAPHER, JOURNALIST, TREASURE_CHEST, MILLIONAIRE,
	JACK_OF_ALL_TRADES, ADVENTURER, PROP_PLANE,
	TRANSMITTER, CARTOGRAPHER, COMPASS, SCIENTIST, TRAVEL_LOG, NATIVE,
}

// initialMarket are the shop indices on the market board at the start of a game.
var initialMarket = [...]int{0, 1, 5, 7, 9, 12}

// Shop holds the cards that can be bought or transmitted.
//
// Cards can be bought only from the types on the market board, unless the board has a free slot,
// in which case buying a type puts it on the board. A type leaves the board when it is sold out.
type Shop struct {
	Available [batch.NumBuyableTypes]uint8
	InMarket  [batch.NumBuyableTypes]bool
}

// Reset the shop to the start of a game.
func (s *Shop) Reset() {
	for idx := range s.Available {
		s.Available[idx] = CardsPerType
		s.InMarket[idx] = false
	}
	for _, idx := range initialMarket {
		s.InMarket[idx] = true
	}
}

// NumInMarket returns the number of types on the market board.
func (s *Shop) NumInMarket() (count int) {
	for _, in := range s.InMarket {
		if in {
			count++
		}
	}
	return
}

// CanBuy returns whether the card at shop index idx can be bought with the given coins.
func (s *Shop) CanBuy(idx int, coins float32) bool {
	return s.Available[idx] > 0 && coins >= float32(ShopCards[idx].Card().Cost) &&
		(s.InMarket[idx] || s.NumInMarket() < MarketSlots)
}

// Buy takes one card of shop index idx, putting its type on the market board. It panics if
// it can't be bought: callers are expected to check CanBuy.
func (s *Shop) Buy(idx int) CardType {
	if !s.InMarket[idx] {
		if s.NumInMarket() >= MarketSlots {
			exceptions.Panicf("market board is full and %s is not in it", ShopCards[idx])
		}
		s.InMarket[idx] = true
	}
	return s.take(idx)
}

// Transmit takes one card of shop index idx, regardless of the market board.
func (s *Shop) Transmit(idx int) CardType {
	return s.take(idx)
}

func (s *Shop) take(idx int) CardType {
	if s.Available[idx] == 0 {
		exceptions.Panicf("no %s left in the shop", ShopCards[idx])
	}
	s.Available[idx]--
	if s.Available[idx] == 0 {
		s.InMarket[idx] = false
	}
	return ShopCards[idx]
}

// Observe writes the shop state: the number of cards available in the lower 2 bits, and
// bit 2 set if the type is on the market board.
func (s *Shop) Observe(obs *[batch.NumBuyableTypes]uint8) {
	for idx, n := range s.Available {
		obs[idx] = n
		if s.InMarket[idx] {
			obs[idx] |= 1 << 2
		}
	}
}
