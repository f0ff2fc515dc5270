package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/connecta/internal/client/models"
)

var (
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	authorStyle = lipgloss.NewStyle().Bold(true)
	metaStyle   = lipgloss.NewStyle().Faint(true)
	flagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// now is swapped in tests so relative times are stable.
var now = time.Now

func relTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now(), "ago", "from now")
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(n) + " " + many
}

// renderPost draws a post as a bordered card.
func renderPost(p models.Post) string {
	var b strings.Builder

	header := fmt.Sprintf("#%d %s", p.ID, authorStyle.Render("@"+p.Author.Username))
	if ts := relTime(p.CreatedAt); ts != "" {
		header += metaStyle.Render(" · " + ts)
	}
	b.WriteString(header)

	if p.Location != "" {
		b.WriteString("\n" + metaStyle.Render(p.Location))
	}
	if p.Caption != "" {
		b.WriteString("\n" + p.Caption)
	}

	meta := []string{
		plural(p.LikeCount, "like", "likes"),
		plural(p.CommentCount, "comment", "comments"),
		mediaSummary(p.Media),
	}
	if p.CommentsDisabled {
		meta[1] = "comments off"
	}
	b.WriteString("\n" + metaStyle.Render(strings.Join(meta, " · ")))

	var flags []string
	if p.IsLiked {
		flags = append(flags, "liked")
	}
	if p.IsSaved {
		flags = append(flags, "saved")
	}
	if len(flags) > 0 {
		b.WriteString("  " + flagStyle.Render("["+strings.Join(flags, "] [")+"]"))
	}

	return cardStyle.Render(b.String())
}

func mediaSummary(items []models.MediaItem) string {
	var images, videos int64
	for _, m := range items {
		if m.Type == models.MediaVideo {
			videos++
		} else {
			images++
		}
	}
	switch {
	case videos == 0:
		return plural(images, "image", "images")
	case images == 0:
		return plural(videos, "video", "videos")
	default:
		return plural(images, "image", "images") + ", " + plural(videos, "video", "videos")
	}
}

// renderUser draws a profile summary.
func renderUser(u models.User) string {
	var b strings.Builder

	b.WriteString(authorStyle.Render("@" + u.Username))
	if u.FirstName != "" {
		b.WriteString(" (" + u.FirstName + ")")
	}
	if u.IsPrivate {
		b.WriteString(metaStyle.Render(" · private"))
	}
	if u.Bio != "" {
		b.WriteString("\n" + u.Bio)
	}
	if u.Website != "" {
		b.WriteString("\n" + u.Website)
	}
	b.WriteString("\n" + metaStyle.Render(strings.Join([]string{
		plural(u.PostsCount, "post", "posts"),
		plural(u.FollowersCount, "follower", "followers"),
		humanize.Comma(u.FollowingCount) + " following",
	}, " · ")))
	if ts := relTime(u.CreatedAt); ts != "" {
		b.WriteString("\n" + metaStyle.Render("joined "+ts))
	}

	return cardStyle.Render(b.String())
}
