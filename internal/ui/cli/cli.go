// Package cli renders El Dorado environments in the terminal.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/eldorado"
	"github.com/aapo-kossi/gym-eldorado/internal/generics"
	"github.com/aapo-kossi/gym-eldorado/internal/geometry"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	LinesPerRow    = 4
	CharsPerColumn = 9
)

var ansiFilter = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// displayWidth of s removes its color/control sequences and returns the length of what is left.
func displayWidth(s string) int {
	return len(ansiFilter.ReplaceAllString(s, ""))
}

func centerString(s string, fit int) string {
	width := displayWidth(s)
	if width >= fit {
		return s
	}
	marginLeft := (fit - width) / 2
	marginRight := fit - width - marginLeft
	return strings.Repeat(" ", marginLeft) + s + strings.Repeat(" ", marginRight)
}

// toDisplayPos converts a grid position to a "display coordinate": columns are x, and every
// other column is shifted half a row down.
func toDisplayPos(pos geometry.Pos) geometry.Pos {
	return geometry.Pos{pos[0], pos[1] + pos[0]>>1}
}

// fromDisplayPos is the inverse of toDisplayPos.
func fromDisplayPos(pos geometry.Pos) geometry.Pos {
	return geometry.Pos{pos[0], pos[1] - pos[0]>>1}
}

var (
	playerColors   = [batch.MaxPlayers]lipgloss.Color{"9", "10", "12", "11"}
	resourceColors = [eldorado.NumResources]lipgloss.Color{"2", "4", "3", "7", "1"}
	resourceLetter = [eldorado.NumResources]string{"m", "p", "c", "u", "d"}
	mountainColor  = lipgloss.Color("8")
)

// UI renders environments to a writer. It implements eldorado.Renderer.
type UI struct {
	w                  io.Writer
	color, clearScreen bool
}

// Assert UI implements eldorado.Renderer.
var _ eldorado.Renderer = &UI{}

// New creates a UI that writes to w. If color is set, hexes and players are colored, and if
// clearScreen is set the terminal is cleared before each rendering.
func New(w io.Writer, color, clearScreen bool) *UI {
	return &UI{w: w, color: color, clearScreen: clearScreen}
}

// Render implements eldorado.Renderer.
func (ui *UI) Render(env *eldorado.Env) {
	var buf bytes.Buffer
	if ui.clearScreen {
		buf.WriteString("\033c")
	}
	_, _ = fmt.Fprintf(&buf, "\nStep #%d\n\n", env.Steps())
	ui.printCentered(&buf, ui.BoardString(env.Board()))
	_, _ = fmt.Fprintln(&buf)
	ui.printPlayers(&buf, env)
	_, _ = fmt.Fprintln(&buf)
	ui.printShop(&buf, env.Shop())
	if env.Done() {
		_, _ = fmt.Fprintln(&buf)
		ui.printCentered(&buf, ui.winnersString(env))
	}
	_, _ = ui.w.Write(buf.Bytes())
}

// terminalWidth returns the width of the terminal ui writes to, or 0 if it is not a terminal.
func (ui *UI) terminalWidth() int {
	f, ok := ui.w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func (ui *UI) printCentered(w io.Writer, block string) {
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	blockWidth := 0
	for _, line := range lines {
		blockWidth = max(blockWidth, displayWidth(line))
	}
	indent := max((ui.terminalWidth()-blockWidth)/2, 0)
	for _, line := range lines {
		if len(line) == 0 {
			_, _ = fmt.Fprintln(w)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", indent), line)
	}
}

func (ui *UI) style(s string, color lipgloss.Color, bold bool) string {
	if !ui.color {
		return s
	}
	return lipgloss.NewStyle().Foreground(color).Bold(bold).Render(s)
}

func (ui *UI) playerString(player int) string {
	s := fmt.Sprintf("P%d", player+1)
	if !ui.color {
		return s
	}
	return lipgloss.NewStyle().Background(playerColors[player]).Foreground(lipgloss.Color("0")).
		Bold(true).Render(s)
}

// usedLimits returns the display coordinates limits of the hexes of the map.
func usedLimits(board *eldorado.Board) (minX, maxX, minY, maxY int8, ok bool) {
	for x := range batch.GridSize {
		for y := range batch.GridSize {
			if board.Grid[x][y].Kind == eldorado.OffBoard {
				continue
			}
			pos := toDisplayPos(geometry.Pos{int8(x), int8(y)})
			if !ok {
				minX, maxX, minY, maxY, ok = pos[0], pos[0], pos[1], pos[1], true
				continue
			}
			minX, maxX = min(minX, pos[0]), max(maxX, pos[0])
			minY, maxY = min(minY, pos[1]), max(maxY, pos[1])
		}
	}
	return
}

// BoardString draws the map as ASCII hexagons: the first line of each hex shows what it takes to
// enter it, and the second the player on it.
func (ui *UI) BoardString(board *eldorado.Board) string {
	var buf bytes.Buffer
	minX, maxX, minY, maxY, ok := usedLimits(board)
	if !ok {
		return ""
	}
	// Loop over board rows.
	for y := minY; y <= maxY+1; y++ {
		// Loop over line within a row.
		for line := int8(0); line < LinesPerRow; line++ {
			ui.printBoardLine(&buf, board, y, line, minX, maxX)
		}
	}
	return buf.String()
}

func (ui *UI) printBoardLine(w io.Writer, board *eldorado.Board, y, line, minX, maxX int8) {
	for x := minX; x <= maxX+1; x++ {
		adjY := y
		adjLine := line
		if x%2 != 0 {
			adjLine = (line - LinesPerRow/2 + LinesPerRow) % LinesPerRow
			if adjLine >= 2 {
				adjY -= 1
			}
		}
		pos := fromDisplayPos(geometry.Pos{x, adjY})
		lastX := x == maxX+1
		ui.printStrip(w, board, pos, adjLine, lastX)
	}
	_, _ = fmt.Fprintln(w)
}

func (ui *UI) printStrip(w io.Writer, board *eldorado.Board, pos geometry.Pos, line int8, lastX bool) {
	switch line {
	case 0:
		_, _ = fmt.Fprint(w, " /")
		if !lastX {
			_, _ = fmt.Fprint(w, strings.Repeat(" ", CharsPerColumn-2))
		}
	case 1:
		_, _ = fmt.Fprint(w, "/")
		if !lastX {
			_, _ = fmt.Fprint(w, " "+centerString(ui.terrainString(board.At(pos)), CharsPerColumn-2))
		}
	case 2:
		_, _ = fmt.Fprint(w, "\\")
		if !lastX {
			occupant := ""
			if hex := board.At(pos); hex != nil && hex.Occupier != 0 {
				occupant = ui.playerString(int(hex.Occupier) - 1)
			}
			_, _ = fmt.Fprint(w, " "+centerString(occupant, CharsPerColumn-2))
		}
	case 3:
		_, _ = fmt.Fprint(w, " \\")
		if !lastX {
			_, _ = fmt.Fprint(w, strings.Repeat("_", CharsPerColumn-2))
		}
	}
}

// terrainString describes what it takes to enter the hex.
func (ui *UI) terrainString(hex *eldorado.Hex) string {
	if hex == nil {
		return ""
	}
	switch hex.Kind {
	case eldorado.Mountain:
		return ui.style("^^^", mountainColor, false)
	case eldorado.Start:
		return ui.style(fmt.Sprintf("S%d", hex.StartFor), playerColors[hex.StartFor-1], false)
	case eldorado.Path, eldorado.End:
		s := fmt.Sprintf("%s%d", resourceLetter[hex.Resource], hex.Required)
		if hex.Kind == eldorado.End {
			s = "*" + s + "*"
		}
		return ui.style(s, resourceColors[hex.Resource], hex.Kind == eldorado.End)
	}
	return ""
}

func (ui *UI) printPlayers(w io.Writer, env *eldorado.Env) {
	for player := range env.Config().Players {
		marker := "  "
		if player == env.CurrentPlayer() && !env.Done() {
			marker = "> "
		}
		_, _ = fmt.Fprintf(w, "%s%s", marker, ui.playerString(player))
		if env.Won(player) {
			_, _ = fmt.Fprint(w, " reached El Dorado!")
		} else {
			_, _ = fmt.Fprintf(w, " at %s", env.Board().Positions[player])
		}
		deck := env.Deck(player)
		hand := generics.SliceMap(deck.Hand(), eldorado.CardType.String)
		_, _ = fmt.Fprintf(w, ", deck of %d, hand [%s]", deck.Size(), strings.Join(hand, ", "))
		if player == env.CurrentPlayer() {
			_, _ = fmt.Fprintf(w, "\n    %s phase, resources:", env.Phase(player))
			resources := env.Resources(player)
			for r, amount := range resources {
				_, _ = fmt.Fprintf(w, " %s=%g", ui.style(eldorado.Resource(r).String(), resourceColors[r], false), amount)
			}
			if special := env.Pending(); special != eldorado.NoSpecial {
				_, _ = fmt.Fprintf(w, ", pending %s", special)
			}
		}
		_, _ = fmt.Fprintln(w)
	}
}

func (ui *UI) printShop(w io.Writer, shop *eldorado.Shop) {
	var market, reserve []string
	for idx, c := range eldorado.ShopCards {
		if shop.Available[idx] == 0 {
			continue
		}
		s := fmt.Sprintf("%s(%d)x%d", c, c.Card().Cost, shop.Available[idx])
		if shop.InMarket[idx] {
			market = append(market, s)
		} else {
			reserve = append(reserve, s)
		}
	}
	_, _ = fmt.Fprintf(w, "Market: [%s]\n", strings.Join(market, ", "))
	_, _ = fmt.Fprintf(w, "Reserve: [%s]\n", strings.Join(reserve, ", "))
}

func (ui *UI) winnersString(env *eldorado.Env) string {
	var winners []string
	for player := range env.Config().Players {
		if env.Won(player) {
			winners = append(winners, fmt.Sprintf("P%d", player+1))
		}
	}
	msg := "*** No one reached El Dorado ***"
	if len(winners) > 0 {
		msg = fmt.Sprintf("*** %s reached El Dorado!! Congratulations! ***", strings.Join(winners, ", "))
	}
	if !ui.color {
		return msg
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color("13")).
		Foreground(lipgloss.Color("0")).
		Padding(1, 2).
		Render(msg)
}
