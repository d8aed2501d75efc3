package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/pocketepub/pkg/app/styles"
	"github.com/kerbaras/pocketepub/pkg/data"
)

// HistoryList is a selectable list of chapter cards.
type HistoryList struct {
	Items         []*data.Chapter
	SelectedIndex int
	Width         int
	Height        int
}

func NewHistoryList() *HistoryList {
	return &HistoryList{
		Items:  []*data.Chapter{},
		Width:  80,
		Height: 20,
	}
}

func (h *HistoryList) SetItems(items []*data.Chapter) {
	h.Items = items
	if h.SelectedIndex >= len(items) && len(items) > 0 {
		h.SelectedIndex = len(items) - 1
	}
	if len(items) == 0 {
		h.SelectedIndex = 0
	}
}

func (h *HistoryList) Next() {
	if len(h.Items) == 0 {
		return
	}
	h.SelectedIndex++
	if h.SelectedIndex >= len(h.Items) {
		h.SelectedIndex = 0
	}
}

func (h *HistoryList) Prev() {
	if len(h.Items) == 0 {
		return
	}
	h.SelectedIndex--
	if h.SelectedIndex < 0 {
		h.SelectedIndex = len(h.Items) - 1
	}
}

func (h *HistoryList) Selected() *data.Chapter {
	if len(h.Items) == 0 || h.SelectedIndex >= len(h.Items) {
		return nil
	}
	return h.Items[h.SelectedIndex]
}

func (h *HistoryList) View() string {
	if len(h.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render("No chapters processed yet")
		return lipgloss.Place(h.Width, h.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	var b strings.Builder
	for i, chapter := range h.Items {
		cardStyle := styles.CardStyle
		if i == h.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}

		title := chapter.Title
		if title == "" {
			title = chapter.ID
		}

		status := chapter.Status
		if status == "" {
			status = "unknown"
		}

		archive := chapter.ArchivePath
		if archive == "" {
			archive = "not packaged"
		}

		cardContent := lipgloss.JoinVertical(
			lipgloss.Left,
			styles.TitleStyle.Render(title),
			styles.MutedStyle.Render(fmt.Sprintf("%s • %d pages • %s", chapter.ID, chapter.Pages, chapter.UpdatedAt.Local().Format("2006-01-02 15:04"))),
			styles.StatusStyle(chapter.Status).Render(status),
			styles.MutedStyle.Render(archive),
		)

		b.WriteString(cardStyle.Width(h.Width - 4).Render(cardContent))
		b.WriteString("\n")
	}

	return b.String()
}
