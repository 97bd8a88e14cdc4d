// Package eldorado implements a single El Dorado environment: a race through a hex map built from
// random pieces, where players move by playing cards from their decks and improve their decks by
// buying cards from a shop.
//
// Each Env is advanced one action at a time with Step, and writes its results (observation, done
// flag, rewards, info, action mask of the selected player and the selected player itself) to
// the buffers of a Slot. A batch of environments binds each Env to its own slot of dense
// batch-wide buffers, so environments can be stepped concurrently.
//
// When an episode is done, the next Step starts a new game and ignores its action.
package eldorado

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/geometry"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Slot points to the buffers where an Env writes its results.
type Slot struct {
	Obs     *batch.ObsData
	Done    *bool
	Rewards *batch.Rewards
	Info    *batch.Info

	// Mask is the action mask of the selected player.
	Mask *batch.ActionMask

	// Agent is the selected player: the one that will execute the next action.
	Agent *uint8
}

// fill allocates the buffers not set.
func (s *Slot) fill() {
	if s.Obs == nil {
		s.Obs = &batch.ObsData{}
	}
	if s.Done == nil {
		s.Done = new(bool)
	}
	if s.Rewards == nil {
		s.Rewards = &batch.Rewards{}
	}
	if s.Info == nil {
		s.Info = &batch.Info{}
	}
	if s.Mask == nil {
		s.Mask = &batch.ActionMask{}
	}
	if s.Agent == nil {
		s.Agent = new(uint8)
	}
}

// Renderer is called after every step of an environment configured with Render.
type Renderer interface {
	Render(env *Env)
}

// pcgStream used for the random number generator of the environments.
const pcgStream = 0xda3e39cb94b95bdb

// Env is one El Dorado game. It is not safe for concurrent use.
type Env struct {
	cfg Config
	rng *rand.Rand

	board   Board
	shop    Shop
	players [batch.MaxPlayers]player
	current int

	// pending special ability of the current player, executed by its next action.
	pending        Special
	pendingRemoves int

	steps uint32
	done  bool
	info  batch.Info
	masks [batch.MaxPlayers]batch.ActionMask

	slot     Slot
	renderer Renderer
}

// New creates an environment with the given configuration and starts a game. Results are written
// to the buffers of slot, and the ones left nil are allocated.
func New(cfg Config, slot Slot) (*Env, error) {
	e := &Env{}
	slot.fill()
	e.slot = slot
	if err := e.Configure(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// DeriveSeed returns the seed for the environment idx of a batch seeded with seed.
func DeriveSeed(seed uint64, idx int) uint64 {
	return seed ^ (uint64(idx) * 0x9e3779b97f4a7c15)
}

// Configure replaces the configuration, re-seeds the random number generator and starts a new game.
func (e *Env) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.rng = rand.New(rand.NewPCG(cfg.Seed, pcgStream))
	return e.Reset()
}

// Reset starts a new game with the current configuration. The random number generator is not
// re-seeded, so each game is different.
func (e *Env) Reset() error {
	if err := e.board.Generate(e.rng, e.cfg.Pieces, e.cfg.Difficulty, e.cfg.Players); err != nil {
		return errors.WithMessagef(err, "environment reset failed")
	}
	e.shop.Reset()
	for ii := range e.cfg.Players {
		e.players[ii].reset(e.rng)
	}
	e.current = 0
	e.pending = NoSpecial
	e.steps = 0
	e.done = false
	e.info = batch.Info{}

	obs := e.slot.Obs
	e.board.ObserveTerrain(&obs.Shared.Map)
	e.board.ObservePlayers(&obs.Shared.Map)
	*e.slot.Rewards = batch.Rewards{}
	e.writeOutputs()
	if klog.V(2).Enabled() {
		klog.Infof("New game: %d players, pieces %v", e.cfg.Players, e.board.Pieces)
	}
	return nil
}

// Bind the environment to a new slot, and write the current results to it.
func (e *Env) Bind(slot Slot) {
	slot.fill()
	e.slot = slot
	e.board.ObserveTerrain(&slot.Obs.Shared.Map)
	e.board.ObservePlayers(&slot.Obs.Shared.Map)
	e.writeOutputs()
}

// SetRenderer sets the renderer used if the environment is configured with Render.
func (e *Env) SetRenderer(r Renderer) {
	e.renderer = r
}

// Step executes the action for the selected player.
//
// Sub-actions not allowed by the selected player's action mask are replaced by the null
// sub-action.
func (e *Env) Step(action batch.ActionData) {
	if e.done {
		if err := e.Reset(); err != nil {
			exceptions.Panicf("automatic reset after episode end: %+v", err)
		}
		return
	}
	*e.slot.Rewards = batch.Rewards{}
	e.steps++
	e.info.TotalLength = e.steps
	agentInfo := &e.info.AgentInfos[e.current]
	if agentInfo.StepsTaken < 255 {
		agentInfo.StepsTaken++
	}
	action = sanitize(action, &e.masks[e.current])

	p := &e.players[e.current]
	switch {
	case e.pending != NoSpecial:
		e.stepPending(action)
		e.maybeNextPlayer()
	case p.won && p.phase == INACTIVE:
		// The winner's turn came around again: every player had the same number of turns.
		e.done = true
	default:
		if p.phase == INACTIVE {
			p.phase = MOVEMENT
		}
		playing := action.Play != 0 || action.PlaySpecial != 0
		switch p.phase {
		case MOVEMENT:
			if action.Move != 0 {
				e.move(geometry.Direction(action.Move), true)
			} else {
				p.tag(CardType(action.Remove-1), action.Remove != 0)
				e.play(action)
				if !playing {
					p.phase = BUYING
				}
			}
		case BUYING:
			if action.GetFromShop != 0 {
				e.buy(int(action.GetFromShop - 1))
			} else {
				e.play(action)
			}
			if !playing {
				p.phase = INACTIVE
			}
		}
		e.maybeNextPlayer()
	}

	if !e.done && e.steps >= e.cfg.MaxSteps {
		e.done = true
	}
	if e.done {
		e.setRewards()
	}
	e.writeOutputs()
	if e.cfg.Render {
		e.render()
	}
}

// sanitize replaces sub-actions not allowed by the mask by 0.
func sanitize(action batch.ActionData, mask *batch.ActionMask) batch.ActionData {
	allowed := func(idx uint8, valid []bool) uint8 {
		if int(idx) < len(valid) && valid[idx] {
			return idx
		}
		return 0
	}
	return batch.ActionData{
		Play:        allowed(action.Play, mask.Play[:]),
		PlaySpecial: allowed(action.PlaySpecial, mask.PlaySpecial[:]),
		Remove:      allowed(action.Remove, mask.Remove[:]),
		Move:        allowed(action.Move, mask.Move[:]),
		GetFromShop: allowed(action.GetFromShop, mask.GetFromShop[:]),
	}
}

// move the current player in direction d, paying for it if pay is set.
func (e *Env) move(d geometry.Direction, pay bool) {
	p := &e.players[e.current]
	agentInfo := &e.info.AgentInfos[e.current]
	obsMap := &e.slot.Obs.Shared.Map
	e.board.ClearPlayer(obsMap, e.current)
	hex := e.board.Move(e.current, d)
	e.board.ObservePlayers(obsMap)
	agentInfo.TravelledHexes++
	if pay {
		required := uint32(hex.Required)
		p.resources[hex.Resource] -= float32(hex.Required)
		switch hex.Resource {
		case MACHETE:
			agentInfo.MacheteUses += required
		case PADDLE:
			agentInfo.PaddleUses += required
		case COIN:
			agentInfo.CoinUses += required
		case USE:
			agentInfo.CardUses += required
		case REMOVE:
			agentInfo.CardsRemoved += uint8(p.deck.RemoveTagged(int(hex.Required)))
		}
	}
	if hex.Kind == End {
		p.won = true
	}
}

// play the card selected by the action, either for its special ability or for its resources.
func (e *Env) play(action batch.ActionData) {
	p := &e.players[e.current]
	if action.PlaySpecial != 0 {
		c := CardType(action.PlaySpecial - 1)
		if p.deck.Play(c, c.RemovedOnPlay(true)) {
			p.resources[REMOVE]--
		}
		card := c.Card()
		switch card.Special {
		case SpecialDraw:
			p.deck.Draw(card.Draw)
		case SpecialDrawAndRemove:
			p.deck.Draw(card.Draw)
			e.pending, e.pendingRemoves = card.Special, card.Removes
		case SpecialTransmit, SpecialNative:
			e.pending = card.Special
		}
		return
	}
	if action.Play != 0 {
		p.playForResources(CardType(action.Play - 1))
	}
}

// buy the card at the given shop index.
func (e *Env) buy(idx int) {
	p := &e.players[e.current]
	cost := ShopCards[idx].Card().Cost
	p.deck.Add(e.shop.Buy(idx))
	p.resources[COIN] -= float32(cost)
	agentInfo := &e.info.AgentInfos[e.current]
	agentInfo.CoinUses += uint32(cost)
	agentInfo.CardsAdded++
}

// stepPending executes the pending special ability with the action.
func (e *Env) stepPending(action batch.ActionData) {
	p := &e.players[e.current]
	agentInfo := &e.info.AgentInfos[e.current]
	switch e.pending {
	case SpecialTransmit:
		if action.GetFromShop != 0 {
			p.deck.Add(e.shop.Transmit(int(action.GetFromShop - 1)))
			agentInfo.CardsAdded++
		}
	case SpecialDrawAndRemove:
		p.tag(CardType(action.Remove-1), action.Remove != 0)
		agentInfo.CardsRemoved += uint8(p.deck.RemoveTagged(e.pendingRemoves))
		p.tag(0, false)
	case SpecialNative:
		if action.Move != 0 {
			e.move(geometry.Direction(action.Move), false)
		}
	}
	e.pending = NoSpecial
}

// maybeNextPlayer ends the turn of the current player if it is over (or if it won), and selects
// the next player.
func (e *Env) maybeNextPlayer() {
	p := &e.players[e.current]
	if !p.won && p.phase != INACTIVE {
		return
	}
	p.endTurn()
	e.current = (e.current + 1) % e.cfg.Players
}

// setRewards of the end of an episode: each winner gets numPlayers-numWinners, and the others
// -numWinners, where numWinners counts at least 1.
func (e *Env) setRewards() {
	numWinners := 0
	for ii := range e.cfg.Players {
		if e.players[ii].won {
			numWinners++
		}
	}
	numWinners = max(numWinners, 1)
	rewards := e.slot.Rewards
	for ii := range e.cfg.Players {
		won := float32(0)
		if e.players[ii].won {
			won = 1
		}
		rewards[ii] = float32(e.cfg.Players)*won - float32(numWinners)
		e.info.AgentInfos[ii].Returns += rewards[ii]
	}
}

// actionMask computes the mask of valid actions of the given player.
func (e *Env) actionMask(playerIdx int, mask *batch.ActionMask) {
	mask.Reset()
	p := &e.players[playerIdx]
	if e.done {
		return
	}
	if playerIdx == e.current && e.pending != NoSpecial {
		switch e.pending {
		case SpecialTransmit:
			for idx, n := range e.shop.Available {
				mask.GetFromShop[idx+1] = n > 0
			}
		case SpecialDrawAndRemove:
			for _, c := range p.deck.hand {
				mask.Remove[c.Type+1] = true
			}
		case SpecialNative:
			for d := geometry.EAST; d < geometry.NumDirections; d++ {
				_, _, ok := e.board.MoveCost(playerIdx, d)
				mask.Move[d] = ok
			}
		}
		return
	}
	if p.won {
		return
	}
	for _, c := range p.deck.hand {
		mask.Play[c.Type+1] = true
		mask.PlaySpecial[c.Type+1] = c.Type.Card().Special != NoSpecial
	}
	switch p.effectivePhase() {
	case MOVEMENT:
		for _, c := range p.deck.hand {
			mask.Remove[c.Type+1] = true
		}
		for d := geometry.EAST; d < geometry.NumDirections; d++ {
			mask.Move[d] = e.board.CanMove(playerIdx, d, &p.resources)
		}
	case BUYING:
		for idx := range ShopCards {
			mask.GetFromShop[idx+1] = e.shop.CanBuy(idx, p.resources[COIN])
		}
	}
}

// writeOutputs writes the observation, masks, done flag, info and selected player to the slot.
// Rewards and the map terrain are written separately.
func (e *Env) writeOutputs() {
	obs := e.slot.Obs
	current := &e.players[e.current]
	obs.Shared.Phase = uint8(current.phase)
	obs.Shared.CurrentResources = current.resources
	e.shop.Observe(&obs.Shared.Shop)
	for ii := range batch.MaxPlayers {
		playerData := &obs.PlayerData[ii]
		if ii >= e.cfg.Players {
			playerData.Obs.Reset()
			e.masks[ii].Reset()
		} else {
			e.players[ii].deck.Observe(&playerData.Obs)
			e.actionMask(ii, &e.masks[ii])
		}
		playerData.ActionMask = e.masks[ii]
	}
	*e.slot.Mask = e.masks[e.current]
	*e.slot.Agent = uint8(e.current)
	*e.slot.Done = e.done
	*e.slot.Info = e.info
}

func (e *Env) render() {
	if e.renderer != nil {
		e.renderer.Render(e)
		return
	}
	klog.Info(e.String())
}

// String returns a one-line summary of the game state.
func (e *Env) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "step %d, player %d (%s)", e.steps, e.current+1, e.players[e.current].phase)
	for ii := range e.cfg.Players {
		fmt.Fprintf(&sb, ", P%d@%s", ii+1, e.board.Positions[ii])
		if e.players[ii].won {
			sb.WriteString("(won)")
		}
	}
	if e.done {
		sb.WriteString(", done")
	}
	return sb.String()
}

// Config returns the environment configuration.
func (e *Env) Config() Config { return e.cfg }

// Board returns the current map.
func (e *Env) Board() *Board { return &e.board }

// Shop returns the current shop.
func (e *Env) Shop() *Shop { return &e.shop }

// CurrentPlayer returns the selected player (0-based).
func (e *Env) CurrentPlayer() int { return e.current }

// Steps returns the number of steps of the current episode.
func (e *Env) Steps() uint32 { return e.steps }

// Done returns whether the episode is over.
func (e *Env) Done() bool { return e.done }

// Pending returns the special ability waiting for the next action, if any.
func (e *Env) Pending() Special { return e.pending }

// Phase returns the turn phase of the player.
func (e *Env) Phase(player int) TurnPhase { return e.players[player].phase }

// Resources returns the resources accumulated by the player in its turn.
func (e *Env) Resources(player int) [NumResources]float32 { return e.players[player].resources }

// Deck returns the deck of the player.
func (e *Env) Deck(player int) *Deck { return &e.players[player].deck }

// Won returns whether the player reached El Dorado.
func (e *Env) Won(player int) bool { return e.players[player].won }

// ActionMask returns the last computed action mask of the player.
func (e *Env) ActionMask(player int) batch.ActionMask { return e.masks[player] }

// Info returns the episode information.
func (e *Env) Info() batch.Info { return e.info }

// Slot returns the buffers the environment writes to.
func (e *Env) Slot() Slot { return e.slot }
