package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/eldorado"
	"github.com/aapo-kossi/gym-eldorado/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayPos(t *testing.T) {
	for x := range int8(10) {
		for y := range int8(10) {
			pos := geometry.Pos{x, y}
			assert.Equal(t, pos, fromDisplayPos(toDisplayPos(pos)))
		}
	}
}

func TestCenterString(t *testing.T) {
	assert.Equal(t, "  ab   ", centerString("ab", 7))
	assert.Equal(t, "abcdefgh", centerString("abcdefgh", 7))
	assert.Equal(t, 2, displayWidth("\x1b[1;31mab\x1b[0m"))
}

func TestRender(t *testing.T) {
	cfg := eldorado.DefaultConfig()
	cfg.Players = 3
	cfg.Render = true
	env, err := eldorado.New(cfg, eldorado.Slot{})
	require.NoError(t, err)
	var buf bytes.Buffer
	ui := New(&buf, false, false)
	env.SetRenderer(ui)
	env.Step(batch.ActionData{})

	out := buf.String()
	assert.Contains(t, out, "Step #1")
	assert.Contains(t, out, "> P1 at ")
	assert.Contains(t, out, "Buying phase")
	assert.Contains(t, out, "Market: [Scout(1)x3, Trailblazer(3)x3")
	assert.NotContains(t, out, "P4")

	board := ui.BoardString(env.Board())
	for player := range cfg.Players {
		// Each player is drawn once, on its start hex.
		assert.Equal(t, 1, strings.Count(board, fmt.Sprintf("P%d", player+1)))
		assert.Contains(t, board, fmt.Sprintf("S%d", player+1))
	}
	assert.Contains(t, board, "^^^")
	assert.Equal(t, 3, strings.Count(board, "*")/2, "end hexes")
}

func TestRenderDone(t *testing.T) {
	cfg := eldorado.DefaultConfig()
	cfg.MaxSteps = 1
	env, err := eldorado.New(cfg, eldorado.Slot{})
	require.NoError(t, err)
	env.Step(batch.ActionData{})
	require.True(t, env.Done())
	var buf bytes.Buffer
	New(&buf, true, false).Render(env)
	assert.Contains(t, buf.String(), "No one reached El Dorado")
}
