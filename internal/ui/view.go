package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tlagarde/chorus/internal/keymap"
	"github.com/tlagarde/chorus/internal/playback"
	"github.com/tlagarde/chorus/internal/queue"
)

const playerBarHeight = 3 // top border + content + bottom border

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showHelp {
		return m.renderHelp()
	}

	panelHeight := m.height
	var bar string
	if m.state != playback.StateStopped {
		bar = m.renderPlayerBar()
		panelHeight -= playerBarHeight
	}
	if m.status != "" {
		panelHeight--
	}

	view := m.renderQueuePanel(panelHeight)
	if m.status != "" {
		view += "\n" + errorStyle.Render(truncate(m.status, m.width))
	}
	if bar != "" {
		view += "\n" + bar
	}
	return view
}

func (m Model) renderQueuePanel(panelHeight int) string {
	innerWidth := max(m.width-2, 0)
	listHeight := max(panelHeight-4, 0) // borders, header, separator

	header := m.renderQueueHeader(innerWidth)
	separator := dimmedStyle.Render(strings.Repeat("─", innerWidth))

	lines := make([]string, 0, listHeight)
	offset := listOffset(m.cursor, len(m.tracks), listHeight)
	for i := 0; i < listHeight; i++ {
		idx := i + offset
		if idx >= len(m.tracks) {
			lines = append(lines, strings.Repeat(" ", innerWidth))
			continue
		}
		lines = append(lines, m.renderTrackLine(idx, innerWidth))
	}

	content := header + "\n" + separator + "\n" + strings.Join(lines, "\n")
	return panelStyle.Width(innerWidth).Render(content)
}

func (m Model) renderQueueHeader(innerWidth int) string {
	current := m.index + 1
	if current < 1 {
		current = 0
	}
	left := fmt.Sprintf("Queue (%d/%s)", current, humanize.Comma(int64(len(m.tracks))))

	var modes []string
	if m.shuffle {
		modes = append(modes, "shuffle")
	}
	switch m.repeat {
	case queue.RepeatOff:
	case queue.RepeatAll:
		modes = append(modes, "repeat all")
	case queue.RepeatOne:
		modes = append(modes, "repeat one")
	}
	right := strings.Join(modes, "  ")

	pad := innerWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return headerStyle.Render(left) + strings.Repeat(" ", pad) + dimmedStyle.Render(right)
}

func (m Model) renderTrackLine(idx, width int) string {
	t := m.tracks[idx]

	prefix := "  "
	if idx == m.index {
		prefix = playSymbol + " "
	}

	badge := fmt.Sprintf("[%s]", t.Source)
	dur := ""
	if t.HasDuration() {
		dur = formatDuration(t.Duration)
	}
	suffix := badge
	if dur != "" {
		suffix = dur + "  " + badge
	}

	contentWidth := max(width-2-lipgloss.Width(suffix)-1, 0)
	title := t.Title
	if title == "" {
		title = t.Locator
	}
	artist := t.Artist

	titleWidth := contentWidth / 2
	artistWidth := contentWidth - titleWidth
	if artist == "" {
		titleWidth = contentWidth
		artistWidth = 0
	}

	line := prefix + truncateAndPad(title, titleWidth)
	if artistWidth > 0 {
		line += truncateAndPad(artist, artistWidth)
	}
	line += " " + suffix

	return m.trackLineStyle(idx).Render(line)
}

func (m Model) trackLineStyle(idx int) lipgloss.Style {
	isCursor := idx == m.cursor
	isPlaying := idx == m.index

	switch {
	case isCursor && isPlaying:
		return cursorStyle.Inherit(playingStyle)
	case isCursor:
		return cursorStyle
	case isPlaying:
		return playingStyle
	default:
		return trackStyle
	}
}

func (m Model) renderPlayerBar() string {
	innerWidth := max(m.width-6, 0)

	status := playSymbol
	switch m.state {
	case playback.StatePaused:
		status = pauseSymbol
	case playback.StateLoading:
		status = m.spinner.View()
	}

	title := "Unknown Track"
	artist := ""
	var duration time.Duration
	if m.track != nil {
		if m.track.Title != "" {
			title = m.track.Title
		}
		artist = m.track.Artist
		duration = m.track.Duration
	}

	timeStr := fmt.Sprintf("%s / %s", formatDuration(m.position), formatDuration(duration))
	volStr := fmt.Sprintf("vol %d%%", m.volume)
	right := timeStr + "   " + volStr

	separator := "   "
	sepWidth := lipgloss.Width(separator)
	statusWidth := lipgloss.Width(status + "  ")
	rightWidth := lipgloss.Width(right)

	const minBarWidth = 10
	availableForContent := innerWidth - statusWidth - rightWidth - sepWidth*2 - minBarWidth

	content := title
	if artist != "" {
		content = artist + " - " + title
	}
	contentWidth := lipgloss.Width(content)
	if contentWidth > availableForContent {
		content = truncate(content, max(availableForContent, 10))
		contentWidth = lipgloss.Width(content)
	}

	barWidth := max(innerWidth-contentWidth-statusWidth-rightWidth-sepWidth*2, 5)

	var ratio float64
	if duration > 0 {
		ratio = float64(m.position) / float64(duration)
	}
	filled := min(int(float64(barWidth)*ratio), barWidth)
	progress := progressFilledStyle.Render(strings.Repeat("━", filled)) +
		progressEmptyStyle.Render(strings.Repeat("─", barWidth-filled))

	var b strings.Builder
	b.WriteString(headerStyle.Render(content))
	b.WriteString(separator)
	b.WriteString(status)
	b.WriteString("  ")
	b.WriteString(progress)
	b.WriteString(separator)
	b.WriteString(dimmedStyle.Render(right))

	return barStyle.Padding(0, 2).Width(m.width - 2).Render(b.String())
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Key bindings"))
	b.WriteString("\n\n")
	for _, context := range []string{"global", "playback", "queue"} {
		b.WriteString(headerStyle.Render(strings.ToUpper(context[:1]) + context[1:]))
		b.WriteString("\n")
		for _, binding := range keymap.ByContext(context) {
			keys := strings.Join(binding.Keys, ", ")
			if keys == " " {
				keys = "space"
			}
			b.WriteString(fmt.Sprintf("  %-16s %s\n", keys, binding.Description))
		}
		b.WriteString("\n")
	}
	b.WriteString(dimmedStyle.Render("Press any key to close"))
	return panelStyle.Width(max(m.width-2, 0)).Render(b.String())
}

// listOffset keeps the cursor visible, scrolling the window only when
// the cursor would leave it.
func listOffset(cursor, count, height int) int {
	if height <= 0 || count <= height {
		return 0
	}
	offset := cursor - height/2
	if offset < 0 {
		offset = 0
	}
	if offset > count-height {
		offset = count - height
	}
	return offset
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	if maxWidth == 1 {
		return "…"
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func truncateAndPad(s string, width int) string {
	s = truncate(s, width)
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
