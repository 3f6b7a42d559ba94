package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/leslieriver/jerboa/internal/account"
	"github.com/leslieriver/jerboa/internal/lemmy"
)

func (a *App) View() string {
	var body string
	switch {
	case a.view == viewPost:
		body = a.renderPost()
	case a.feed.FullScreenLoading():
		body = a.renderFullScreenLoading()
	default:
		body = a.renderPosts()
	}
	if a.drawerOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, a.renderDrawer(), " ", body)
	}
	if a.picker != pickerNone {
		body = a.renderPicker() + "\n" + body
	}
	return strings.Join([]string{
		a.renderHeader(),
		body,
		a.renderStatus(),
		footerStyle.Render(a.keys.helpLine(a.scope())),
	}, "\n")
}

func (a *App) renderHeader() string {
	who := "anonymous"
	if p := a.site.MyPerson(); p != nil && !a.session.Anonymous() {
		who = p.Name
	} else if cur, ok := a.accounts.Current(); ok && !a.session.Anonymous() {
		who = cur.Name
	}
	parts := []string{
		brandStyle.Render("jerboa"),
		headerStyle.Render(who + "@" + a.session.Instance),
		headerDimStyle.Render("sort:") + " " + headerStyle.Render(string(a.feed.SortType)),
		headerDimStyle.Render("listing:") + " " + headerStyle.Render(string(a.feed.ListingType)),
	}
	if a.feed.Loading || a.site.Loading {
		parts = append(parts, a.spinner.View())
	}
	return strings.Join(parts, "  ")
}

func (a *App) renderFullScreenLoading() string {
	return panelStyle.Render(a.spinner.View() + " Loading posts")
}

func (a *App) renderPosts() string {
	posts := a.feed.Posts
	if len(posts) == 0 {
		if a.feed.Loading {
			return metaStyle.Render("Loading...")
		}
		return metaStyle.Render("No posts. Press r to refresh.")
	}
	start, end := a.visibleRange(len(posts))
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(a.renderPostRow(posts[i], i == a.cursor))
		b.WriteString("\n")
	}
	if a.feed.Loading && a.feed.Page > 1 {
		b.WriteString(metaStyle.Render(a.spinner.View() + " loading page " + fmt.Sprint(a.feed.Page)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// visibleRange keeps the cursor on screen; each post takes two lines.
func (a *App) visibleRange(n int) (int, int) {
	rows := n
	if a.height > 0 {
		rows = max((a.height-4)/2, 1)
	}
	start := 0
	if a.cursor >= rows {
		start = a.cursor - rows + 1
	}
	return start, min(start+rows, n)
}

func (a *App) renderPostRow(pv lemmy.PostView, selected bool) string {
	marker := "  "
	title := titleStyle.Render(pv.Post.Name)
	if selected {
		marker = cursorStyle.Render("> ")
		title = cursorStyle.Render(pv.Post.Name)
	}
	score := fmt.Sprintf("%4d", pv.Counts.Score)
	if pv.MyVote != nil {
		switch *pv.MyVote {
		case 1:
			score = upStyle.Render(score)
		case -1:
			score = downStyle.Render(score)
		}
	}
	first := marker + score + " " + title
	if pv.Saved {
		first += " " + savedStyle.Render("★")
	}
	second := "       " + renderCommunityLink(pv.Community) +
		metaStyle.Render(fmt.Sprintf(" · %s · %d comments", pv.Creator.Name, pv.Counts.Comments))
	return first + "\n" + second
}

func (a *App) renderPost() string {
	pv := a.post
	var b strings.Builder
	b.WriteString(titleStyle.Render(pv.Post.Name) + "\n")
	b.WriteString(renderCommunityLink(pv.Community) +
		metaStyle.Render(fmt.Sprintf(" · %s · score %d · %d comments", pv.Creator.Name, pv.Counts.Score, pv.Counts.Comments)) + "\n")
	if pv.Post.Body != nil && *pv.Post.Body != "" {
		b.WriteString("\n" + *pv.Post.Body + "\n")
	}
	if len(a.links) > 0 {
		b.WriteString("\n" + headerDimStyle.Render("links") + "\n")
		for i, l := range a.links {
			prefix := "  "
			if i == a.linkCursor {
				prefix = cursorStyle.Render("> ")
			}
			b.WriteString(prefix + linkStyle.Render(l) + "\n")
		}
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (a *App) renderDrawer() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Accounts") + "\n")
	if len(a.accounts.Accounts) == 0 {
		b.WriteString(metaStyle.Render("none, log in with -login"))
	}
	cur, hasCur := a.accounts.Current()
	for i, acct := range a.accounts.Accounts {
		prefix := "  "
		if i == a.drawerCursor {
			prefix = cursorStyle.Render("> ")
		}
		label := account.Label(acct)
		if hasCur && acct.ID == cur.ID {
			label += " " + statusStyle.Render("●")
		}
		b.WriteString(prefix + label + "\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (a *App) renderPicker() string {
	title := "Sort"
	if a.picker == pickerListing {
		title = "Listing"
	}
	lines := []string{titleStyle.Render(title)}
	for i, opt := range a.pickerOptions() {
		prefix := "  "
		if i == a.pickerCursor {
			prefix = cursorStyle.Render("> ")
		}
		lines = append(lines, prefix+opt)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderStatus() string {
	if a.status == "" {
		return ""
	}
	if a.isErr {
		return errorStyle.Render(a.status)
	}
	if strings.HasPrefix(a.status, "post has no") {
		return warnStyle.Render(a.status)
	}
	return statusStyle.Render(a.status)
}
