// Package board renders FEN positions for the terminal.
package board

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

var ErrInvalidPosition = errors.New("invalid board position")

type RenderOptions struct {
	// Flip draws the board from black's side.
	Flip bool
	// LastMove squares are highlighted when set.
	LastMove *domain.Move
}

type grid [8][8]rune

// parsePlacement reads the piece placement field of a FEN string. Row 0 of
// the grid is rank 8.
func parsePlacement(fen string) (grid, string, error) {
	var g grid
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return g, "", fmt.Errorf("%w: empty", ErrInvalidPosition)
	}

	rows := strings.Split(fields[0], "/")
	if len(rows) != 8 {
		return g, "", fmt.Errorf("%w: %d ranks", ErrInvalidPosition, len(rows))
	}

	for r, row := range rows {
		file := 0
		for _, c := range row {
			switch {
			case c >= '1' && c <= '8':
				file += int(c - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", c):
				if file < 8 {
					g[r][file] = c
				}
				file++
			default:
				return g, "", fmt.Errorf("%w: unexpected %q", ErrInvalidPosition, c)
			}
		}
		if file != 8 {
			return g, "", fmt.Errorf("%w: rank %d has %d files", ErrInvalidPosition, 8-r, file)
		}
	}

	turn := ""
	if len(fields) > 1 {
		turn = fields[1]
	}
	return g, turn, nil
}

func renderView(fen string, opts RenderOptions, s styles) (string, error) {
	g, turn, err := parsePlacement(fen)
	if err != nil {
		return "", err
	}

	ranks := lo.Range(8)
	files := lo.Range(8)
	if opts.Flip {
		slices.Reverse(ranks)
		slices.Reverse(files)
	}

	lines := make([]string, 0, 10)
	for _, row := range ranks {
		cells := []string{s.label.Render(fmt.Sprintf("%d ", 8-row))}
		for _, file := range files {
			cells = append(cells, renderSquare(g[row][file], domain.Square{File: uint8(file), Rank: uint8(7 - row)}, opts, s))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	labels := lo.Map(files, func(file int, _ int) string {
		return fmt.Sprintf(" %c ", 'a'+file)
	})
	lines = append(lines, s.label.Render("  "+strings.Join(labels, "")))

	switch turn {
	case "w":
		lines = append(lines, s.caption.Render("white to move"))
	case "b":
		lines = append(lines, s.caption.Render("black to move"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...), nil
}

func renderSquare(piece rune, sq domain.Square, opts RenderOptions, s styles) string {
	background := s.dark
	if (sq.File+sq.Rank)%2 == 1 {
		background = s.light
	}
	if opts.LastMove != nil && (opts.LastMove.From == sq || opts.LastMove.To == sq) {
		background = s.highlight
	}

	glyph := " . "
	style := background
	if piece != 0 {
		glyph = " " + string(piece) + " "
		if piece >= 'A' && piece <= 'Z' {
			style = background.Inherit(s.white)
		} else {
			style = background.Inherit(s.black)
		}
	}

	return style.Render(glyph)
}
