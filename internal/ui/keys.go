package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Down      key.Binding
	Up        key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Open      key.Binding
	Close     key.Binding
	Refresh   key.Binding
	Retry     key.Binding
	Sort      key.Binding
	Type      key.Binding
	Team      key.Binding
	Search    key.Binding
	Reset     key.Binding
	Bet       key.Binding
	Debug     key.Binding
	NextField key.Binding
	Submit    key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Down:      key.NewBinding(key.WithKeys("j", "down")),
	Up:        key.NewBinding(key.WithKeys("k", "up")),
	Top:       key.NewBinding(key.WithKeys("g", "home")),
	Bottom:    key.NewBinding(key.WithKeys("G", "end")),
	Open:      key.NewBinding(key.WithKeys("enter")),
	Close:     key.NewBinding(key.WithKeys("esc", "q")),
	Refresh:   key.NewBinding(key.WithKeys("r")),
	Retry:     key.NewBinding(key.WithKeys("R")),
	Sort:      key.NewBinding(key.WithKeys("s")),
	Type:      key.NewBinding(key.WithKeys("t")),
	Team:      key.NewBinding(key.WithKeys("m")),
	Search:    key.NewBinding(key.WithKeys("/")),
	Reset:     key.NewBinding(key.WithKeys("x")),
	Bet:       key.NewBinding(key.WithKeys("b")),
	Debug:     key.NewBinding(key.WithKeys("D")),
	NextField: key.NewBinding(key.WithKeys("tab", "shift+tab", "down", "up")),
	Submit:    key.NewBinding(key.WithKeys("enter")),
}
