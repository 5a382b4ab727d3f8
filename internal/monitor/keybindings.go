package monitor

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Quit       key.Binding
	NextView   key.Binding
	PrevView   key.Binding
	SelectView key.Binding
	FullScan   key.Binding
	CryptoScan key.Binding
	FileScan   key.Binding
	Export     key.Binding
	Save       key.Binding
	Help       key.Binding
	Cancel     key.Binding
	Submit     key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextView:   key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next view")),
	PrevView:   key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "previous view")),
	SelectView: key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7"), key.WithHelp("1-7", "jump to view")),
	FullScan:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "full scan")),
	CryptoScan: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cryptojacking check")),
	FileScan:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "scan a file")),
	Export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export report")),
	Save:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save scan snapshot")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
	Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
}

// ShortHelp is the footer line.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextView, k.FullScan, k.CryptoScan, k.FileScan, k.Help, k.Quit}
}

// FullHelp is the help overlay, one group per column.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SelectView, k.NextView, k.PrevView},
		{k.FullScan, k.CryptoScan, k.FileScan},
		{k.Export, k.Save, k.Help, k.Quit},
	}
}
