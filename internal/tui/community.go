package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leslieriver/jerboa/internal/lemmy"
)

const communityIconGlyph = "◆"

// communityLink returns the parts of a community label: an icon part when
// the community has an icon, then the title.
func communityLink(c lemmy.CommunitySafe) []string {
	parts := make([]string, 0, 2)
	if c.Icon != nil {
		parts = append(parts, iconStyle.Render(communityIconGlyph))
	}
	return append(parts, c.Title)
}

func renderCommunityLink(c lemmy.CommunitySafe) string {
	return lipgloss.JoinHorizontal(lipgloss.Center, communityLink(c)...)
}
