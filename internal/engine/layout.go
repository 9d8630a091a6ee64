package engine

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/vertwheel/pacman-p2/internal/game"
)

// ErrInvalidLayout indicates a layout that cannot be played.
var ErrInvalidLayout = errors.New("invalid layout")

//go:embed layouts/*.lay
var builtin embed.FS

// Layout is a parsed maze. Row 0 of the text is the northernmost row, so
// y = Height-1-row.
type Layout struct {
	Name     string
	Width    int
	Height   int
	walls    [][]bool // walls[x][y]
	Food     []game.Position
	Capsules []game.Position
	Pacman   game.Position
	Ghosts   []game.Position
}

// ParseLayout reads the classic text format: '%' wall, '.' food,
// 'o' capsule, 'P' pacman, 'G' ghost, anything else open floor.
func ParseLayout(name, text string) (*Layout, error) {
	var rows []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read layout %s: %w", name, err)
	}
	if len(rows) < 3 {
		return nil, fmt.Errorf("%w: %s has %d rows", ErrInvalidLayout, name, len(rows))
	}

	l := &Layout{Name: name, Width: len(rows[0]), Height: len(rows)}
	l.walls = make([][]bool, l.Width)
	for x := range l.walls {
		l.walls[x] = make([]bool, l.Height)
	}

	pacmen := 0
	for row, line := range rows {
		if len(line) != l.Width {
			return nil, fmt.Errorf("%w: %s row %d has width %d, want %d", ErrInvalidLayout, name, row, len(line), l.Width)
		}
		y := l.Height - 1 - row
		for x, ch := range line {
			pos := game.Position{X: x, Y: y}
			switch ch {
			case '%':
				l.walls[x][y] = true
			case '.':
				l.Food = append(l.Food, pos)
			case 'o':
				l.Capsules = append(l.Capsules, pos)
			case 'P':
				l.Pacman = pos
				pacmen++
			case 'G':
				l.Ghosts = append(l.Ghosts, pos)
			}
		}
	}
	if pacmen != 1 {
		return nil, fmt.Errorf("%w: %s has %d pacman cells, want 1", ErrInvalidLayout, name, pacmen)
	}
	for _, c := range l.Corners() {
		if l.IsWall(c) {
			return nil, fmt.Errorf("%w: %s corner %s is a wall", ErrInvalidLayout, name, c)
		}
	}
	return l, nil
}

// LoadLayout resolves name against the built-in layouts first, then the
// filesystem.
func LoadLayout(name string) (*Layout, error) {
	data, err := builtin.ReadFile(path.Join("layouts", name+".lay"))
	if err != nil {
		data, err = os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("load layout %q: %w", name, err)
		}
	}
	return ParseLayout(name, string(data))
}

// BuiltinLayouts lists the embedded layout names.
func BuiltinLayouts() []string {
	entries, err := builtin.ReadDir("layouts")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".lay"))
	}
	return names
}

// IsWall reports whether pos is a wall. Cells outside the grid count as
// walls.
func (l *Layout) IsWall(pos game.Position) bool {
	if pos.X < 0 || pos.Y < 0 || pos.X >= l.Width || pos.Y >= l.Height {
		return true
	}
	return l.walls[pos.X][pos.Y]
}

// Walls lists every wall cell, column by column.
func (l *Layout) Walls() []game.Position {
	var out []game.Position
	for x := 0; x < l.Width; x++ {
		for y := 0; y < l.Height; y++ {
			if l.walls[x][y] {
				out = append(out, game.Position{X: x, Y: y})
			}
		}
	}
	return out
}

// Corners are the four innermost cells next to the outer wall corners.
func (l *Layout) Corners() []game.Position {
	return []game.Position{
		{X: 1, Y: 1},
		{X: 1, Y: l.Height - 2},
		{X: l.Width - 2, Y: 1},
		{X: l.Width - 2, Y: l.Height - 2},
	}
}

// LegalActions returns the moves available from pos in North, South, East,
// West, Stop order.
func (l *Layout) LegalActions(pos game.Position) []game.Action {
	legal := make([]game.Action, 0, 5)
	for _, a := range game.Directions {
		if !l.IsWall(game.NextPosition(pos, a)) {
			legal = append(legal, a)
		}
	}
	return append(legal, game.Stop)
}
