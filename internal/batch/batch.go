// Package batch defines the fixed-layout records exchanged between a batch of environments and
// a batch of action samplers, and the interfaces the threaded runner drives them through.
//
// Every record type here is a plain value with no pointers, so a batch of them is a single dense
// slice indexed by the environment index.
package batch

import (
	"github.com/aapo-kossi/gym-eldorado/internal/geometry"
)

const (
	// MaxPlayers in one environment.
	MaxPlayers = 4

	// NumBuyableTypes of cards sold in the shop.
	NumBuyableTypes = 18

	// NumCardTypes includes the 3 starting types that can't be bought.
	NumCardTypes = NumBuyableTypes + 3

	// NumDirections including the null direction (stay in place).
	NumDirections = int(geometry.NumDirections)

	// NumResourceTypes tracked per player: machete, paddle, coin, card uses and card removals.
	NumResourceTypes = 5

	// GridSize of the map observation: the map is observed as a GridSize x GridSize grid.
	GridSize = 48

	// NumMapFeatures observed per hex of the grid.
	NumMapFeatures = 7
)

// DeckObs is the per-player observation of its cards, as counts per card type.
type DeckObs struct {
	Draw    [NumCardTypes]uint8
	Hand    [NumCardTypes]uint8
	Active  [NumCardTypes]uint8
	Played  [NumCardTypes]uint8
	Discard [NumCardTypes]uint8
}

// Reset zeroes all counts.
func (d *DeckObs) Reset() {
	*d = DeckObs{}
}

// MapObservation is the grid of features of the map.
type MapObservation [GridSize][GridSize][NumMapFeatures]uint8

// SharedObservation is the part of the observation common to all players.
type SharedObservation struct {
	Map              MapObservation
	Phase            uint8
	CurrentResources [NumResourceTypes]float32
	Shop             [NumBuyableTypes]uint8
}

// ActionMask holds the validity of each sub-action, per category.
//
// Entry 0 of every category is the null action (play nothing, stay still, buy nothing), and it
// is always valid.
type ActionMask struct {
	Play        [NumCardTypes + 1]bool
	PlaySpecial [NumCardTypes + 1]bool
	Remove      [NumCardTypes + 1]bool
	Move        [NumDirections]bool
	GetFromShop [NumBuyableTypes + 1]bool
}

// NewActionMask returns a mask where only the null actions are valid.
func NewActionMask() ActionMask {
	var m ActionMask
	m.Reset()
	return m
}

// Reset the mask so only the null actions are valid.
func (m *ActionMask) Reset() {
	*m = ActionMask{}
	m.Play[0] = true
	m.PlaySpecial[0] = true
	m.Remove[0] = true
	m.Move[0] = true
	m.GetFromShop[0] = true
}

// Allows returns whether every sub-action of a is marked valid in the mask.
func (m *ActionMask) Allows(a ActionData) bool {
	return int(a.Play) < len(m.Play) && m.Play[a.Play] &&
		int(a.PlaySpecial) < len(m.PlaySpecial) && m.PlaySpecial[a.PlaySpecial] &&
		int(a.Remove) < len(m.Remove) && m.Remove[a.Remove] &&
		int(a.Move) < len(m.Move) && m.Move[a.Move] &&
		int(a.GetFromShop) < len(m.GetFromShop) && m.GetFromShop[a.GetFromShop]
}

// PlayerData is the private observation of one player.
type PlayerData struct {
	Obs        DeckObs
	ActionMask ActionMask
}

// ObsData is the full observation of one environment.
type ObsData struct {
	Shared     SharedObservation
	PlayerData [MaxPlayers]PlayerData
}

// ActionData is the action for one environment step. Each field indexes into the category of
// the same name of ActionMask, and 0 is the null sub-action.
type ActionData struct {
	Play        uint8
	PlaySpecial uint8
	Remove      uint8
	Move        uint8
	GetFromShop uint8
}

// IsNull returns whether the action neither plays a card, moves or buys.
func (a ActionData) IsNull() bool {
	return a.Play == 0 && a.Move == 0 && a.GetFromShop == 0
}

// AgentInfo accumulates statistics for one player during an episode.
type AgentInfo struct {
	StepsTaken     uint8
	Returns        float32
	TravelledHexes uint32
	CardsAdded     uint8
	CardsRemoved   uint8
	MacheteUses    uint32
	PaddleUses     uint32
	CoinUses       uint32
	CardUses       uint32
}

// Info is the per-environment episode information.
type Info struct {
	TotalLength uint32
	AgentInfos  [MaxPlayers]AgentInfo
}

// Rewards of one environment step, one per player seat.
type Rewards [MaxPlayers]float32

// Environments is a batch of N independent environments, driven one index at a time.
//
// StepSingle must be safe to call concurrently for distinct indices, and it must only
// write to the result buffers of slot idx.
type Environments interface {
	NumEnvs() int
	StepSingle(action *ActionData, idx int)
	SelectedActionMasks() []ActionMask
}

// Sampler is a batch of N independent action samplers.
//
// SampleSingle must be safe to call concurrently for distinct indices, and it must only
// write Actions()[idx] and use the random stream of slot idx.
type Sampler interface {
	NumEnvs() int
	SampleSingle(mask *ActionMask, idx int)
	Actions() []ActionData
}
