package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"face-gallery/internal/domain/gallery"
)

// TerminalNotifier prints view alerts as they are raised
type TerminalNotifier struct {
	mu        sync.Mutex
	w         io.Writer
	infoStyle lipgloss.Style
	errStyle  lipgloss.Style
}

func NewTerminalNotifier(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{
		w:         w,
		infoStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		errStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// Alert implements gallery.Notifier
func (n *TerminalNotifier) Alert(_ context.Context, level, message string) {
	style := n.infoStyle
	if level == gallery.AlertError {
		style = n.errStyle
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, style.Render(message))
}
