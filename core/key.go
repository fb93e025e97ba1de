package core

// KeyKind identifies a decoded keystroke.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyUp
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyTab
	KeyEscape
	KeyCtrlA
	KeyCtrlC
	KeyCtrlD
	KeyCtrlE
	KeyCtrlK
	KeyCtrlL
	KeyCtrlU
	KeyCtrlW
)

// Key is one keystroke; Rune is set for KeyRune.
type Key struct {
	Kind KeyKind
	Rune rune
}
