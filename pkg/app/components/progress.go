package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kerbaras/pocketepub/pkg/app/styles"
	"github.com/kerbaras/pocketepub/pkg/services"
)

type ProgressTracker struct {
	chapters map[string]*services.Progress
	width    int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		chapters: make(map[string]*services.Progress),
		width:    width,
	}
}

// Update records the latest event for a chapter. Finished chapters are
// dropped; failed ones stay visible until Clear.
func (p *ProgressTracker) Update(progress services.Progress) {
	if progress.Stage == services.StageDone {
		delete(p.chapters, progress.ChapterID)
		return
	}
	prog := progress
	p.chapters[progress.ChapterID] = &prog
}

func (p *ProgressTracker) Clear() {
	p.chapters = make(map[string]*services.Progress)
}

func (p *ProgressTracker) HasActive() bool {
	return len(p.chapters) > 0
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

func (p *ProgressTracker) View() string {
	if len(p.chapters) == 0 {
		return ""
	}

	ids := make([]string, 0, len(p.chapters))
	for id := range p.chapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Active Chapters"))
	b.WriteString("\n\n")

	for _, id := range ids {
		progress := p.chapters[id]

		b.WriteString(styles.TextStyle.Render(fmt.Sprintf("Chapter %s", id)))
		b.WriteString("\n")

		statusText := string(progress.Stage)
		if progress.Total > 0 {
			percentage := float64(progress.Current) / float64(progress.Total) * 100
			statusText = fmt.Sprintf("%s (%d/%d pages - %.0f%%)",
				progress.Stage, progress.Current, progress.Total, percentage)

			b.WriteString(renderProgressBar(progress.Current, progress.Total, p.width-4))
			b.WriteString("\n")
		}

		b.WriteString(styles.StatusStyle(string(progress.Stage)).Render(statusText))
		b.WriteString("\n")

		if progress.Err != nil {
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", progress.Err)))
			b.WriteString("\n")
		}

		b.WriteString("\n")
	}

	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.ProgressBarStyle.Render(bar)
}

// SimpleProgress renders a bare progress bar.
func SimpleProgress(current, total, width int) string {
	return renderProgressBar(current, total, width)
}
