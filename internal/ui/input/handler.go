package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Action is a viewer command triggered by a key
type Action int

const (
	ActionNone Action = iota
	ActionToggleHeights
	ActionToggleSmooth
	ActionNextChunk
	ActionPrevChunk
	ActionSaveSlot
	ActionLoadSlot
	ActionToggleHUD
)

// String returns the string representation of an Action
func (a Action) String() string {
	switch a {
	case ActionToggleHeights:
		return "ToggleHeights"
	case ActionToggleSmooth:
		return "ToggleSmooth"
	case ActionNextChunk:
		return "NextChunk"
	case ActionPrevChunk:
		return "PrevChunk"
	case ActionSaveSlot:
		return "SaveSlot"
	case ActionLoadSlot:
		return "LoadSlot"
	case ActionToggleHUD:
		return "ToggleHUD"
	default:
		return "None"
	}
}

// Binding maps a key to an action
type Binding struct {
	Key    ebiten.Key
	Action Action
}

// DefaultBindings are the viewer's keys
var DefaultBindings = []Binding{
	{ebiten.KeyH, ActionToggleHeights},
	{ebiten.KeyS, ActionToggleSmooth},
	{ebiten.KeyTab, ActionNextChunk},
	{ebiten.KeyArrowRight, ActionNextChunk},
	{ebiten.KeyArrowLeft, ActionPrevChunk},
	{ebiten.KeyF5, ActionSaveSlot},
	{ebiten.KeyF9, ActionLoadSlot},
	{ebiten.KeyF1, ActionToggleHUD},
}

// Handler polls keyboard and mouse once per frame and queues actions
type Handler struct {
	bindings       []Binding
	queue          []Action
	mouseX, mouseY int
}

// NewHandler creates a handler with the default bindings
func NewHandler() *Handler {
	return &Handler{bindings: DefaultBindings}
}

// Update polls input; call once per ebiten Update
func (h *Handler) Update() {
	h.mouseX, h.mouseY = ebiten.CursorPosition()
	for _, b := range h.bindings {
		if inpututil.IsKeyJustPressed(b.Key) {
			h.queue = append(h.queue, b.Action)
		}
	}
}

// Drain returns and clears the queued actions
func (h *Handler) Drain() []Action {
	out := h.queue
	h.queue = nil
	return out
}

// Cursor returns the last polled mouse position
func (h *Handler) Cursor() (int, int) {
	return h.mouseX, h.mouseY
}
