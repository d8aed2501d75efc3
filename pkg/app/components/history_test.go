package components

import (
	"strings"
	"testing"

	"github.com/kerbaras/pocketepub/pkg/data"
)

func sampleChapters(n int) []*data.Chapter {
	chapters := make([]*data.Chapter, n)
	for i := range chapters {
		chapters[i] = &data.Chapter{
			ID:     string(rune('1' + i)),
			Title:  "Chapter " + string(rune('A'+i)),
			Status: "completed",
			Pages:  10 + i,
		}
	}
	return chapters
}

func TestNewHistoryList(t *testing.T) {
	list := NewHistoryList()

	if list.SelectedIndex != 0 {
		t.Errorf("Expected SelectedIndex 0, got %d", list.SelectedIndex)
	}
	if list.Selected() != nil {
		t.Error("Expected no selection on an empty list")
	}
}

func TestSetItemsClampsSelection(t *testing.T) {
	list := NewHistoryList()
	list.SetItems(sampleChapters(3))
	list.SelectedIndex = 2

	list.SetItems(sampleChapters(1))

	if list.SelectedIndex != 0 {
		t.Errorf("Expected SelectedIndex to be clamped to 0, got %d", list.SelectedIndex)
	}
}

func TestNextPrevWrap(t *testing.T) {
	list := NewHistoryList()
	list.SetItems(sampleChapters(3))

	list.Next()
	list.Next()
	if list.SelectedIndex != 2 {
		t.Errorf("Expected SelectedIndex 2, got %d", list.SelectedIndex)
	}

	list.Next()
	if list.SelectedIndex != 0 {
		t.Errorf("Expected wrap to 0, got %d", list.SelectedIndex)
	}

	list.Prev()
	if list.SelectedIndex != 2 {
		t.Errorf("Expected wrap to 2, got %d", list.SelectedIndex)
	}

	if got := list.Selected(); got == nil || got.ID != "3" {
		t.Errorf("Expected chapter 3 selected, got %+v", got)
	}
}

func TestNextPrevEmpty(t *testing.T) {
	list := NewHistoryList()
	list.Next()
	list.Prev()

	if list.SelectedIndex != 0 {
		t.Errorf("Expected SelectedIndex 0, got %d", list.SelectedIndex)
	}
}

func TestHistoryViewEmpty(t *testing.T) {
	list := NewHistoryList()

	if view := list.View(); !strings.Contains(view, "No chapters processed yet") {
		t.Error("Expected empty message")
	}
}

func TestHistoryViewItems(t *testing.T) {
	list := NewHistoryList()
	chapters := sampleChapters(2)
	chapters[1].Title = ""
	chapters[1].Status = "error"
	list.SetItems(chapters)

	view := list.View()

	if !strings.Contains(view, "Chapter A") {
		t.Error("Expected title in view")
	}
	if !strings.Contains(view, "10 pages") {
		t.Error("Expected page count in view")
	}
	if !strings.Contains(view, "error") {
		t.Error("Expected status in view")
	}
	if !strings.Contains(view, "not packaged") {
		t.Error("Expected missing archive marker in view")
	}
}
