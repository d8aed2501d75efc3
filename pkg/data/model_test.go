package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestChapterDescriptor_MainPages(t *testing.T) {
	desc := &ChapterDescriptor{
		Pages: []PageEntry{
			LinkPage{LinkPosition: "start"},
			MainPage{Src: "https://cdn.example.com/1.jpg", Width: intPtr(760), Height: intPtr(1200)},
			MainPage{Src: ""},
			OtherPage{},
			MainPage{Src: "https://cdn.example.com/2.jpg"},
			BackMatterPage{},
		},
	}

	refs := desc.MainPages()

	assert.Equal(t, []PageRef{
		{Index: 2, URL: "https://cdn.example.com/1.jpg"},
		{Index: 5, URL: "https://cdn.example.com/2.jpg"},
	}, refs)
}

func TestChapterDescriptor_Scrambled(t *testing.T) {
	desc := &ChapterDescriptor{ScrambleFlag: "usagi"}
	assert.False(t, desc.Scrambled("usagi"))

	desc.ScrambleFlag = "baku"
	assert.True(t, desc.Scrambled("usagi"))

	desc.ScrambleFlag = ""
	assert.True(t, desc.Scrambled("usagi"))
}

func TestPageEntryKinds(t *testing.T) {
	cases := map[PageKind]PageEntry{
		KindLink:       LinkPage{},
		KindMain:       MainPage{},
		KindOther:      OtherPage{},
		KindBackMatter: BackMatterPage{},
	}
	for want, entry := range cases {
		assert.Equal(t, want, entry.Kind())
	}
}
