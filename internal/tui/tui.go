// Package tui is a terminal front end for a single game session.
//
// Keys: letters type, Backspace/Delete erase, Enter submits, 4/5/6 change the
// word length, Ctrl-R starts a new round (or retries a failed fetch), Esc or
// Ctrl-C quits. Fetch results arrive asynchronously and are posted to the
// event loop as interrupt events.
package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/robalobadob/wordle/apps/wordgame/internal/game"
)

// ActionKind says what a key press asks for.
type ActionKind int

const (
	ActNone ActionKind = iota
	ActKey
	ActLength
	ActReset
	ActQuit
)

// Action is a decoded key press.
type Action struct {
	Kind   ActionKind
	Key    string // for ActKey: a letter, "Backspace", "Delete" or "Enter"
	Length int    // for ActLength
}

// Decode maps a terminal key event to an Action.
func Decode(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Action{Kind: ActQuit}
	case tcell.KeyCtrlR:
		return Action{Kind: ActReset}
	case tcell.KeyEnter:
		return Action{Kind: ActKey, Key: "Enter"}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return Action{Kind: ActKey, Key: "Backspace"}
	case tcell.KeyDelete:
		return Action{Kind: ActKey, Key: "Delete"}
	case tcell.KeyRune:
		r := ev.Rune()
		if ev.Modifiers()&tcell.ModCtrl != 0 {
			switch unicode.ToLower(r) {
			case 'r':
				return Action{Kind: ActReset}
			case 'c':
				return Action{Kind: ActQuit}
			}
			return Action{Kind: ActNone}
		}
		switch {
		case r >= '4' && r <= '6':
			return Action{Kind: ActLength, Length: int(r - '0')}
		case unicode.IsLetter(r) && r < unicode.MaxASCII:
			return Action{Kind: ActKey, Key: string(unicode.ToLower(r))}
		}
	}
	return Action{Kind: ActNone}
}

var (
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleHint    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleEmpty   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleInput   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleExact   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorGreen).Bold(true)
	stylePresent = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow).Bold(true)
	styleAbsent  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkGray)
	styleWon     = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleLost    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// MarkStyle returns the cell style for a feedback mark.
func MarkStyle(m game.Mark) tcell.Style {
	switch m {
	case game.MarkExact:
		return styleExact
	case game.MarkPresent:
		return stylePresent
	default:
		return styleAbsent
	}
}

// Board layout: grid starts at (gridX, gridY), one cell per letter plus a
// spacer column.
const (
	gridX = 2
	gridY = 2
)

// CellX returns the screen column of letter i in a row.
func CellX(i int) int { return gridX + i*2 }

// RowY returns the screen line of board row r.
func RowY(r int) int { return gridY + r }

// UI renders one session on a tcell screen.
type UI struct {
	screen tcell.Screen
	sess   *game.Session
	snap   game.Snapshot
}

// New returns a UI over an initialised screen.
func New(screen tcell.Screen, sess *game.Session) *UI {
	return &UI{screen: screen, sess: sess, snap: sess.Snapshot()}
}

// Run draws the board and processes events until the user quits or ctx is
// cancelled. The caller owns screen.Init and screen.Fini.
func (u *UI) Run(ctx context.Context) error {
	updates, unsubscribe := u.sess.Subscribe()
	defer unsubscribe()

	go func() {
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				_ = u.screen.PostEvent(tcell.NewEventInterrupt(snap))
			case <-ctx.Done():
				_ = u.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
				return
			}
		}
	}()

	u.snap = u.sess.Snapshot()
	u.Draw()
	for {
		ev := u.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if !u.Handle(ev) {
			return nil
		}
		u.Draw()
	}
}

// Handle applies one event and reports whether the loop should continue.
func (u *UI) Handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a := Decode(ev)
		switch a.Kind {
		case ActQuit:
			return false
		case ActKey:
			u.snap, _ = u.sess.Press(a.Key)
		case ActLength:
			u.snap = u.sess.ChangeWordLength(a.Length)
		case ActReset:
			u.snap = u.sess.Reset()
		}
	case *tcell.EventInterrupt:
		switch ev.Data().(type) {
		case game.Snapshot:
			// The queued copy may predate a keypress already drawn.
			u.snap = u.sess.Snapshot()
		case error:
			return false
		}
	case *tcell.EventResize:
		u.screen.Sync()
	}
	return true
}

// Draw renders the current snapshot.
func (u *UI) Draw() {
	s := u.snap
	u.screen.Clear()

	u.text(gridX, 0, styleTitle, fmt.Sprintf("WORDGAME  %d letters  %d attempts left", s.WordLength, s.AttemptsRemaining))

	row := 0
	for _, r := range s.Rows {
		for i := 0; i < len(r.Word); i++ {
			u.screen.SetContent(CellX(i), RowY(row), unicode.ToUpper(rune(r.Word[i])), nil, MarkStyle(r.Marks[i]))
		}
		row++
	}
	if s.ShowCurrent {
		for i := 0; i < s.WordLength; i++ {
			ch, st := '_', styleEmpty
			if i < len(s.Current) {
				ch, st = unicode.ToUpper(rune(s.Current[i])), styleInput
			}
			u.screen.SetContent(CellX(i), RowY(row), ch, nil, st)
		}
		row++
		for b := 0; b < s.BlankRows; b++ {
			for i := 0; i < s.WordLength; i++ {
				u.screen.SetContent(CellX(i), RowY(row), '_', nil, styleEmpty)
			}
			row++
		}
	}

	y := RowY(game.TotalAttempts) + 1
	switch s.Status {
	case game.StatusLoading:
		u.text(gridX, y, styleHint, "Loading word...")
	case game.StatusWon:
		u.text(gridX, y, styleWon, s.Message)
		u.text(gridX, y+1, styleHint, "Ctrl-R to play again")
	case game.StatusLost:
		u.text(gridX, y, styleLost, s.Message)
		u.text(gridX, y+1, styleHint, "Ctrl-R to play again")
	case game.StatusErrored:
		u.text(gridX, y, styleError, s.Message)
		u.text(gridX, y+1, styleHint, "Ctrl-R to retry")
	}
	u.text(gridX, y+3, styleHint, "4/5/6 word length   Ctrl-R new round   Esc quit")
	u.screen.Show()
}

// Line returns the text of screen line y with trailing blanks removed.
func Line(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := screen.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func (u *UI) text(x, y int, st tcell.Style, s string) {
	for _, r := range s {
		u.screen.SetContent(x, y, r, nil, st)
		x++
	}
}
