package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/merkezekre2020/musix/internal/config"
	"github.com/merkezekre2020/musix/internal/errmsg"
	"github.com/merkezekre2020/musix/internal/library"
	"github.com/merkezekre2020/musix/internal/logging"
	"github.com/merkezekre2020/musix/internal/lrclib"
	"github.com/merkezekre2020/musix/internal/lyrics"
	"github.com/merkezekre2020/musix/internal/mpris"
	"github.com/merkezekre2020/musix/internal/playback"
	"github.com/merkezekre2020/musix/internal/player"
	"github.com/merkezekre2020/musix/internal/playlist"
	"github.com/merkezekre2020/musix/internal/state"
)

var (
	playerBarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	currentTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("237"))

	lyricStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

const seekStep = 5 * time.Second

// eventMsg signals that playback state changed and the snapshot is stale.
type eventMsg struct{}

// scanDoneMsg reports a finished library scan.
type scanDoneMsg struct {
	tracks  int
	artists int
	albums  int
	stats   *library.ScanStats
	err     error
}

// viewMode selects the main pane: the play queue or the library browser.
type viewMode int

const (
	viewQueue viewMode = iota
	viewBrowse
)

// browseLevel is the drill-down depth of the library browser.
type browseLevel int

const (
	levelArtists browseLevel = iota
	levelAlbums
	levelTracks
)

type model struct {
	svc     playback.Service
	lib     *library.Library
	sources []string
	log     zerolog.Logger
	sub     *playback.Subscription
	snap    playback.Snapshot
	mode    viewMode
	cursor  int
	width   int
	height  int
	status  string

	level        browseLevel
	artists      []string
	albums       []library.Album
	albumTracks  []library.Track
	artist       string
	album        string
	browseCursor int
}

func newModel(svc playback.Service, lib *library.Library, sources []string, log zerolog.Logger) model {
	return model{
		svc:     svc,
		lib:     lib,
		sources: sources,
		log:     log,
		sub:     svc.Subscribe(),
		snap:    svc.Snapshot(),
	}
}

func (m model) Init() tea.Cmd {
	return listenCmd(m.sub)
}

// listenCmd waits for the next playback event. Every event kind invalidates
// the snapshot the same way, so they all collapse into one message.
func listenCmd(sub *playback.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-sub.StateChanged:
		case <-sub.TrackChanged:
		case <-sub.QueueChanged:
		case <-sub.ModeChanged:
		case <-sub.PositionChanged:
		case <-sub.LyricsChanged:
		case <-sub.LyricIndexChanged:
		case e := <-sub.Error:
			return e
		case <-sub.Done:
			return nil
		}
		return eventMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case eventMsg:
		m.snap = m.svc.Snapshot()
		return m, listenCmd(m.sub)

	case playback.ErrorEvent:
		m.status = errmsg.FormatWith(errmsg.OpPlaybackStart, msg.Path, msg.Err)
		m.snap = m.svc.Snapshot()
		return m, listenCmd(m.sub)

	case scanDoneMsg:
		if msg.err != nil {
			m.status = errmsg.Format(errmsg.OpLibraryScan, msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("Library: %d tracks, %d artists, %d albums",
			msg.tracks, msg.artists, msg.albums)
		if s := msg.stats; s != nil && s.Added+s.Updated+s.Removed > 0 {
			m.status += fmt.Sprintf(" (+%d ~%d -%d)", s.Added, s.Updated, s.Removed)
		}
		if m.mode == viewBrowse {
			m.reloadBrowse()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.mode == viewQueue {
			m.mode = viewBrowse
			m.reloadBrowse()
		} else {
			m.mode = viewQueue
		}
	case "up", "k":
		if m.mode == viewBrowse {
			if m.browseCursor > 0 {
				m.browseCursor--
			}
		} else if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.mode == viewBrowse {
			if m.browseCursor < m.browseLen()-1 {
				m.browseCursor++
			}
		} else if m.cursor < len(m.snap.Queue)-1 {
			m.cursor++
		}
	case "enter":
		if m.mode == viewBrowse {
			m.browseEnter()
		} else if err := m.svc.JumpTo(m.cursor); err != nil {
			m.status = errmsg.Format(errmsg.OpPlaybackStart, err)
		}
	case "esc", "backspace":
		if m.mode == viewBrowse {
			m.browseBack()
		}
	case "a":
		if m.mode == viewBrowse {
			m.browseAdd()
		}
	case " ":
		if err := m.svc.Toggle(); err != nil {
			m.status = errmsg.Format(errmsg.OpPlaybackStart, err)
		}
	case "x":
		m.svc.Stop()
	case "n":
		if err := m.svc.Next(); err != nil {
			m.status = errmsg.Format(errmsg.OpPlaybackStart, err)
		}
	case "p":
		if err := m.svc.Previous(); err != nil {
			m.status = errmsg.Format(errmsg.OpPlaybackStart, err)
		}
	case "s":
		m.svc.ToggleShuffle()
	case "r":
		m.svc.CycleRepeatMode()
	case "R":
		if len(m.sources) > 0 {
			m.status = "Rescanning library..."
			return m, scanCmd(m.lib, m.svc, m.sources, m.log, true)
		}
	case "left":
		m.svc.Seek(-seekStep)
	case "right":
		m.svc.Seek(seekStep)
	}
	m.snap = m.svc.Snapshot()
	return m, nil
}

func (m *model) browseLen() int {
	switch m.level {
	case levelAlbums:
		return len(m.albums)
	case levelTracks:
		return len(m.albumTracks)
	default:
		return len(m.artists)
	}
}

// reloadBrowse refreshes the list for the current browse level.
func (m *model) reloadBrowse() {
	var err error
	switch m.level {
	case levelArtists:
		m.artists, err = m.lib.Artists()
	case levelAlbums:
		m.albums, err = m.lib.Albums(m.artist)
	case levelTracks:
		m.albumTracks, err = m.lib.Tracks(m.artist, m.album)
	}
	if err != nil {
		m.status = errmsg.Format(errmsg.OpLibraryLoad, err)
	}
	if m.browseCursor >= m.browseLen() {
		m.browseCursor = 0
	}
}

// browseEnter descends one level, or plays the selected track.
func (m *model) browseEnter() {
	switch m.level {
	case levelArtists:
		if m.browseCursor < len(m.artists) {
			m.artist = m.artists[m.browseCursor]
			m.level = levelAlbums
			m.browseCursor = 0
			m.reloadBrowse()
		}
	case levelAlbums:
		if m.browseCursor < len(m.albums) {
			m.album = m.albums[m.browseCursor].Name
			m.level = levelTracks
			m.browseCursor = 0
			m.reloadBrowse()
		}
	case levelTracks:
		if m.browseCursor < len(m.albumTracks) {
			if err := m.svc.PlayTrack(m.albumTracks[m.browseCursor].PlaylistTrack()); err != nil {
				m.status = errmsg.Format(errmsg.OpPlaybackStart, err)
			}
		}
	}
}

// browseBack ascends one level; from the artist list it returns to the queue.
func (m *model) browseBack() {
	switch m.level {
	case levelTracks:
		m.level = levelAlbums
	case levelAlbums:
		m.level = levelArtists
	case levelArtists:
		m.mode = viewQueue
		return
	}
	m.browseCursor = 0
	m.reloadBrowse()
}

// browseAdd appends the selected album or track to the queue.
func (m *model) browseAdd() {
	switch m.level {
	case levelAlbums:
		if m.browseCursor >= len(m.albums) {
			return
		}
		tracks, err := m.lib.Tracks(m.artist, m.albums[m.browseCursor].Name)
		if err != nil {
			m.status = errmsg.Format(errmsg.OpQueueAdd, err)
			return
		}
		qt := make([]playlist.Track, 0, len(tracks))
		for _, t := range tracks {
			qt = append(qt, t.PlaylistTrack())
		}
		m.svc.Add(qt...)
		m.status = fmt.Sprintf("Added %d tracks to queue", len(qt))
	case levelTracks:
		if m.browseCursor < len(m.albumTracks) {
			m.svc.Add(m.albumTracks[m.browseCursor].PlaylistTrack())
			m.status = "Added to queue"
		}
	}
}

const chromeHeight = 6 // title + lyric + status + player bar

func (m model) View() string {
	var b strings.Builder

	b.WriteString(dimStyle.Render("musix"))
	b.WriteString("\n")

	if m.mode == viewBrowse {
		b.WriteString(m.browseView())
	} else {
		b.WriteString(m.queueView())
	}
	b.WriteString("\n")

	b.WriteString(m.lyricView())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")

	b.WriteString(m.playerBarView())
	return b.String()
}

// queueView renders a window of the queue around the cursor.
func (m model) queueView() string {
	if len(m.snap.Queue) == 0 {
		return dimStyle.Render("  queue is empty - configure library_sources in config.toml")
	}

	listHeight := m.height - chromeHeight
	if listHeight < 3 {
		listHeight = 3
	}

	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := start + listHeight
	if end > len(m.snap.Queue) {
		end = len(m.snap.Queue)
	}

	var lines []string
	for i := start; i < end; i++ {
		t := m.snap.Queue[i]
		label := t.Title
		if t.Artist != "" {
			label = t.Artist + " - " + label
		}

		prefix := "  "
		if i == m.snap.QueueIndex {
			prefix = "> "
			label = currentTrackStyle.Render(label)
		}
		line := prefix + label
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// browseView renders the library drill-down: artists, albums, then tracks.
func (m model) browseView() string {
	crumb := "library"
	if m.level >= levelAlbums {
		crumb += " / " + m.artist
	}
	if m.level == levelTracks {
		crumb += " / " + m.album
	}

	var labels []string
	switch m.level {
	case levelArtists:
		labels = m.artists
	case levelAlbums:
		for _, a := range m.albums {
			label := a.Name
			if a.Year > 0 {
				label = fmt.Sprintf("%s (%d)", a.Name, a.Year)
			}
			labels = append(labels, label)
		}
	case levelTracks:
		for _, t := range m.albumTracks {
			labels = append(labels, fmt.Sprintf("%2d  %s", t.TrackNumber, t.Title))
		}
	}

	if len(labels) == 0 {
		return dimStyle.Render(crumb + " (empty)")
	}

	listHeight := m.height - chromeHeight - 1
	if listHeight < 3 {
		listHeight = 3
	}
	start := 0
	if m.browseCursor >= listHeight {
		start = m.browseCursor - listHeight + 1
	}
	end := start + listHeight
	if end > len(labels) {
		end = len(labels)
	}

	lines := []string{dimStyle.Render(crumb)}
	for i := start; i < end; i++ {
		line := "  " + labels[i]
		if i == m.browseCursor {
			line = cursorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// lyricView renders the active lyric line for the current position.
func (m model) lyricView() string {
	switch {
	case m.snap.LyricsLoading:
		return dimStyle.Render("  fetching lyrics...")
	case m.snap.LyricsError != "":
		return dimStyle.Render("  " + errmsg.Format(errmsg.OpLyricsFetch, errors.New(m.snap.LyricsError)))
	case m.snap.Lyrics == nil:
		return ""
	}

	idx := m.snap.ActiveLyricIndex
	if idx < 0 || idx >= len(m.snap.Lyrics.Lines) {
		return ""
	}
	text := m.snap.Lyrics.Lines[idx].Text
	if text == "" {
		return ""
	}
	return lyricStyle.Render("  " + text)
}

func (m model) playerBarView() string {
	innerWidth := m.width - 2
	if innerWidth < 10 {
		innerWidth = 10
	}

	status := "■"
	switch m.snap.State {
	case playback.StatePlaying, playback.StateLoading:
		status = "▶"
	case playback.StatePaused:
		status = "⏸"
	}

	var trackInfo string
	if m.snap.Track != nil {
		trackInfo = m.snap.Track.Title
		if m.snap.Track.Artist != "" {
			trackInfo = m.snap.Track.Artist + " - " + trackInfo
		}
	}

	modes := fmt.Sprintf("[%s]", m.snap.RepeatMode)
	if m.snap.Shuffle {
		modes += " [shuffle]"
	}

	right := fmt.Sprintf("%s %s / %s ", modes, formatDuration(m.snap.Position), formatDuration(m.snap.Duration))
	left := " " + status + "  " + trackInfo

	padding := innerWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	content := left + strings.Repeat(" ", padding) + right
	bar := progressLine(m.snap.Progress, innerWidth)
	return playerBarStyle.Width(innerWidth).Render(content + "\n" + bar)
}

func progressLine(progress float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	return currentTrackStyle.Render(strings.Repeat("━", filled)) +
		dimStyle.Render(strings.Repeat("─", width-filled))
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// scanCmd refreshes the library from the configured sources in the
// background and reports a summary. full forces a rescan of unchanged
// files. When the queue is still empty afterwards, it is filled with the
// freshly scanned library.
func scanCmd(lib *library.Library, svc playback.Service, sources []string, log zerolog.Logger, full bool) tea.Cmd {
	return func() tea.Msg {
		progress := make(chan library.ScanProgress, 128)
		errCh := make(chan error, 1)
		go func() {
			if full {
				errCh <- lib.FullRefresh(sources, progress)
			} else {
				errCh <- lib.Refresh(sources, progress)
			}
		}()
		var stats *library.ScanStats
		for p := range progress {
			if p.Stats != nil {
				stats = p.Stats
			}
		}
		if err := <-errCh; err != nil {
			log.Error().Err(err).Msg("library scan failed")
			return scanDoneMsg{err: err}
		}

		msg := scanDoneMsg{stats: stats}
		var err error
		if msg.tracks, err = lib.TrackCount(); err != nil {
			return scanDoneMsg{err: err}
		}
		if msg.artists, err = lib.ArtistCount(); err != nil {
			return scanDoneMsg{err: err}
		}
		if msg.albums, err = lib.AlbumCount(); err != nil {
			return scanDoneMsg{err: err}
		}
		if stats != nil {
			log.Info().
				Int("tracks", msg.tracks).
				Int("added", stats.Added).
				Int("updated", stats.Updated).
				Int("removed", stats.Removed).
				Msg("library scan finished")
		}
		if len(svc.Snapshot().Queue) == 0 {
			if tracks := libraryTracks(lib); len(tracks) > 0 {
				svc.Replace(tracks, 0)
			}
		}
		return msg
	}
}

// libraryTracks returns the whole library in browse order as queue tracks.
func libraryTracks(lib *library.Library) []playlist.Track {
	all, err := lib.AllTracks()
	if err != nil || len(all) == 0 {
		return nil
	}
	tracks := make([]playlist.Track, 0, len(all))
	for _, t := range all {
		tracks = append(tracks, t.PlaylistTrack())
	}
	return tracks
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpConfigLoad, err))
	}

	log := logging.New(cfg.Log.File, cfg.LogLevel())

	stateMgr, err := state.Open()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpInitialize, err))
	}
	defer stateMgr.Close()

	lib := library.New(stateMgr.DB())

	queue := playlist.NewQueue()
	if tracks := libraryTracks(lib); len(tracks) > 0 {
		queue.Replace(tracks, 0)
	}

	var client lyrics.Client
	if cfg.LyricsEnabled() {
		client = lrclib.New(cfg.Lyrics.BaseURL)
	}

	svc := playback.New(player.New(), queue, client, log)
	defer svc.Close()

	mprisAdapter, err := mpris.New(svc)
	if err != nil {
		log.Warn().Err(err).Msg("mpris unavailable")
	} else {
		defer mprisAdapter.Close()
	}

	m := newModel(svc, lib, cfg.LibrarySources, log)

	var initCmds []tea.Cmd
	if len(cfg.LibrarySources) > 0 {
		initCmds = append(initCmds, scanCmd(lib, svc, cfg.LibrarySources, log, false))
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if len(initCmds) > 0 {
		go func() {
			for _, cmd := range initCmds {
				if msg := cmd(); msg != nil {
					p.Send(msg)
				}
			}
		}()
	}

	_, err = p.Run()
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
