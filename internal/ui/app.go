package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/config"
	"github.com/abelbrown/edgeboard/internal/edges"
	"github.com/abelbrown/edgeboard/internal/filter"
	"github.com/abelbrown/edgeboard/internal/otel"
	"github.com/abelbrown/edgeboard/internal/poller"
)

const defaultToastDuration = 4 * time.Second

// refreshSkipped is shown when a debounced refresh did not run.
const refreshSkipped = "Refresh skipped: edges were just refreshed."

// ObsConfig groups observability dependencies.
type ObsConfig struct {
	Logger *otel.Logger
	Ring   *otel.RingBuffer
}

// AppConfig wires the App to the rest of the program.
// Every func is optional; a nil func disables its key.
type AppConfig struct {
	Refresh       func(bypass bool) tea.Cmd        // manual refresh / retry
	Resume        func() tea.Cmd                   // terminal regained focus
	PlaceBet      func(req api.BetRequest) tea.Cmd // must answer with BetPlaced
	Beta          config.BetaConfig
	ToastDuration time.Duration
	Debug         bool // start with the debug overlay open
	Obs           ObsConfig
	Now           func() time.Time
}

// toast is the notification currently on screen.
type toast struct {
	seq     uint64
	message string
	kind    poller.ToastKind
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the poller. It receives state via PollerUpdated.
type App struct {
	refresh  func(bypass bool) tea.Cmd
	resume   func() tea.Cmd
	placeBet func(req api.BetRequest) tea.Cmd
	beta     config.BetaConfig
	toastDur time.Duration
	events   otel.Emitter
	ring     *otel.RingBuffer
	session  string
	now      func() time.Time

	state   poller.State
	filters filter.State
	visible []edges.Edge
	types   []string
	teams   []string
	cursor  int

	modal *detailModal
	form  *betForm

	search    textinput.Model
	searching bool

	toast         *toast
	toastSeq      uint64
	lastPollToast uint64

	spinner      spinner.Model
	spinning     bool
	debugVisible bool

	width  int
	height int
	ready  bool
}

// NewApp creates an App with only the refresh command wired.
func NewApp(refresh func(bypass bool) tea.Cmd) App {
	return NewAppWithConfig(AppConfig{Refresh: refresh})
}

// NewAppWithConfig creates an App from cfg.
func NewAppWithConfig(cfg AppConfig) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.PromptStyle = SearchPrompt
	ti.Placeholder = "search player, team or type"
	ti.CharLimit = 64

	a := App{
		refresh:  cfg.Refresh,
		resume:   cfg.Resume,
		placeBet: cfg.PlaceBet,
		beta:     cfg.Beta,
		toastDur: cfg.ToastDuration,
		events:   cfg.Obs.Logger.For("ui"),
		ring:     cfg.Obs.Ring,
		session:  cfg.Obs.Logger.SessionID(),
		now:      cfg.Now,
		filters:  filter.Default(),
		search:   ti,
		spinner:  s,
		spinning: true,

		debugVisible: cfg.Debug,
	}
	if a.toastDur <= 0 {
		a.toastDur = defaultToastDuration
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.reproject()
	return a
}

// Init starts the loading spinner.
func (a App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Msg: fmt.Sprintf("%T", msg)})
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		if a.modal != nil {
			a.modal.resize(a.width, a.height)
		}
		return a, nil

	case tea.FocusMsg:
		a.events.Info(otel.KindFocus, "focus")
		if a.resume != nil {
			return a, a.resume()
		}
		return a, nil

	case PollerUpdated:
		return a.applyState(msg.State)

	case RefreshDone:
		if !msg.Triggered {
			return a.showToast(refreshSkipped, poller.ToastInfo)
		}
		return a, nil

	case ToastExpired:
		if a.toast != nil && a.toast.seq == msg.Seq {
			a.toast = nil
		}
		return a, nil

	case BetPlaced:
		return a.handleBetPlaced(msg)

	case spinner.TickMsg:
		if !a.loading() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// applyState installs s unless an equal or newer state is already shown.
func (a App) applyState(s poller.State) (tea.Model, tea.Cmd) {
	if s.Version <= a.state.Version {
		return a, nil
	}
	a.state = s
	a.reproject()

	var cmds []tea.Cmd
	if t := s.Toast; t != nil && t.ID > a.lastPollToast {
		a.lastPollToast = t.ID
		var cmd tea.Cmd
		a, cmd = a.showToast(t.Message, t.Kind)
		cmds = append(cmds, cmd)
	}
	if a.loading() && !a.spinning {
		a.spinning = true
		cmds = append(cmds, a.spinner.Tick)
	}
	return a, tea.Batch(cmds...)
}

// reproject recomputes the visible list, the facets and the cursor bound.
func (a *App) reproject() {
	var list []edges.Edge
	if a.state.Snapshot != nil {
		list = a.state.Snapshot.Edges
	}
	a.types, a.teams = filter.Facets(list)
	a.visible = filter.Apply(list, a.filters)
	if a.cursor >= len(a.visible) {
		a.cursor = max(len(a.visible)-1, 0)
	}
}

func (a App) showToast(message string, kind poller.ToastKind) (App, tea.Cmd) {
	a.toastSeq++
	seq := a.toastSeq
	a.toast = &toast{seq: seq, message: message, kind: kind}
	return a, tea.Tick(a.toastDur, func(time.Time) tea.Msg {
		return ToastExpired{Seq: seq}
	})
}

func (a App) loading() bool {
	return a.state.Phase != poller.Idle || a.state.Version == 0
}

func (a App) viewOnly() bool {
	return a.beta.ViewOnly || (a.state.Snapshot != nil && a.state.Snapshot.ViewOnly)
}

// handleKeyMsg routes a key to the innermost active layer.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}
	a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Msg: msg.String()})

	switch {
	case a.form != nil:
		return a.handleFormKey(msg)
	case a.searching:
		return a.handleSearchKey(msg)
	case a.debugVisible:
		if key.Matches(msg, keys.Debug) {
			a.debugVisible = false
		} else if key.Matches(msg, keys.Quit) {
			return a, tea.Quit
		}
		return a, nil
	case a.modal != nil:
		return a.handleModalKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.visible)-1 {
			a.cursor++
		}

	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, keys.Top):
		a.cursor = 0

	case key.Matches(msg, keys.Bottom):
		a.cursor = max(len(a.visible)-1, 0)

	case key.Matches(msg, keys.Open):
		if a.cursor < len(a.visible) {
			a.openModal(a.visible[a.cursor])
		}

	case key.Matches(msg, keys.Refresh):
		if a.refresh != nil {
			return a, a.refresh(false)
		}

	case key.Matches(msg, keys.Retry):
		if a.refresh != nil {
			return a, a.refresh(true)
		}

	case key.Matches(msg, keys.Sort):
		a.filters.Sort = a.filters.Sort.Next()
		a.reproject()

	case key.Matches(msg, keys.Type):
		a.filters.EdgeType = filter.Cycle(a.types, a.filters.EdgeType)
		a.cursor = 0
		a.reproject()

	case key.Matches(msg, keys.Team):
		a.filters.Team = filter.Cycle(a.teams, a.filters.Team)
		a.cursor = 0
		a.reproject()

	case key.Matches(msg, keys.Search):
		a.searching = true
		a.search.SetValue(a.filters.Search)
		a.search.CursorEnd()
		return a, a.search.Focus()

	case key.Matches(msg, keys.Reset):
		a.filters = filter.Default()
		a.search.SetValue("")
		a.cursor = 0
		a.reproject()

	case key.Matches(msg, keys.Debug):
		a.debugVisible = true

	case msg.Type == tea.KeyEsc:
		if a.filters.Search != "" {
			a.filters.Search = ""
			a.search.SetValue("")
			a.reproject()
		}
	}
	return a, nil
}

// handleSearchKey edits the search text, filtering as the user types.
func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		a.searching = false
		a.search.Blur()
		return a, nil
	case tea.KeyEsc:
		a.searching = false
		a.search.Blur()
		a.search.SetValue("")
		a.filters.Search = ""
		a.reproject()
		return a, nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	a.filters.Search = a.search.Value()
	a.cursor = 0
	a.reproject()
	return a, cmd
}

func (a App) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Close):
		a.modal = nil
		return a, nil
	case key.Matches(msg, keys.Bet):
		return a.openBetForm()
	}
	return a, a.modal.update(msg)
}

func (a App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		a.form = nil
		return a, nil
	case key.Matches(msg, keys.Submit):
		return a.submitBet()
	case key.Matches(msg, keys.NextField):
		return a, a.form.focusNext()
	}
	return a, a.form.update(msg)
}

// handleMouse closes the modal or form on a backdrop click and opens the
// modal for a clicked card.
func (a App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return a, nil
	}

	switch {
	case a.form != nil:
		if msg.Button == tea.MouseButtonLeft && a.outsideBox(a.form.view(a.width), msg) {
			a.form = nil
		}
		return a, nil
	case a.modal != nil:
		if msg.Button == tea.MouseButtonLeft && a.outsideBox(a.modal.view(a.width, a.viewOnly()), msg) {
			a.modal = nil
			return a, nil
		}
		return a, a.modal.update(msg)
	case msg.Button == tea.MouseButtonLeft && a.state.HasData() && !a.debugVisible:
		if i, ok := a.cardAt(msg.Y); ok {
			a.cursor = i
			a.openModal(a.visible[i])
		}
	}
	return a, nil
}

func (a App) outsideBox(box string, msg tea.MouseMsg) bool {
	x, y, w, h := boxBounds(box, a.width, a.height)
	return !inside(msg.X, msg.Y, x, y, w, h)
}

// cardAt maps a screen row to an index in the visible list.
func (a App) cardAt(row int) (int, bool) {
	top := a.dashboardTop()
	first := lipgloss.Height(top)
	if row < first {
		return 0, false
	}
	perPage := cardsPerPage(a.cardsHeight(top))
	i := cardOffset(a.cursor, perPage) + (row-first)/cardHeight
	if i >= len(a.visible) || (row-first)/cardHeight >= perPage {
		return 0, false
	}
	return i, true
}

func (a *App) openModal(e edges.Edge) {
	m := newDetailModal(e, a.width, a.height)
	a.modal = &m
}

func (a App) openBetForm() (tea.Model, tea.Cmd) {
	if a.viewOnly() {
		return a.rejectBet()
	}
	f := newBetForm(a.modal.edge)
	a.form = &f
	return a, textinput.Blink
}

// rejectBet refuses a bet locally without touching the network.
func (a App) rejectBet() (tea.Model, tea.Cmd) {
	a.events.Warn(otel.KindBetRejected, ErrViewOnly.Error())
	a.form = nil
	return a.showToast("Bet rejected: "+ErrViewOnly.Error()+".", poller.ToastError)
}

func (a App) submitBet() (tea.Model, tea.Cmd) {
	if a.form.submitting {
		return a, nil
	}
	if a.viewOnly() {
		return a.rejectBet()
	}
	req, err := a.form.request()
	if err != nil {
		a.form.err = err.Error()
		return a, nil
	}
	if a.placeBet == nil {
		a.form.err = "betting is not available"
		return a, nil
	}

	a.form.submitting = true
	a.events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindBetSubmit,
		Msg:   req.EdgeKey,
		Extra: map[string]any{"stake": req.Stake.String(), "odds": req.Odds.String()},
	})
	return a, a.placeBet(req)
}

func (a App) handleBetPlaced(msg BetPlaced) (tea.Model, tea.Cmd) {
	player := ""
	if a.form != nil {
		player = a.form.edge.Player
		a.form.submitting = false
	}

	if msg.Err != nil {
		a.events.Error(otel.KindBetError, msg.Err)
		if a.form != nil {
			a.form.err = msg.Err.Error()
		}
		return a.showToast("Bet failed: "+msg.Err.Error(), poller.ToastError)
	}

	a.form = nil
	text := "Bet placed."
	if msg.Bet != nil {
		a.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindBetPlaced, Msg: msg.Bet.EdgeKey, Extra: map[string]any{"id": msg.Bet.ID}})
		text = fmt.Sprintf("Bet placed: $%s on %s.", msg.Bet.Stake.StringFixed(2), player)
	}
	return a.showToast(text, poller.ToastSuccess)
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debugVisible {
		return overlay(debugOverlay(a.ring, a.now(), a.width, a.height-1), a.width, a.height-1) +
			"\n" + debugStatusBar(a.session, a.width)
	}

	s := a.state
	if !s.HasData() {
		if s.ErrorMessage != "" && s.Phase == poller.Idle {
			return renderErrorPage(s.ErrorMessage, a.width)
		}
		return renderSkeleton(a.spinner.View(), a.width)
	}

	switch {
	case a.form != nil:
		return overlay(a.form.view(a.width), a.width, a.height)
	case a.modal != nil:
		return overlay(a.modal.view(a.width, a.viewOnly()), a.width, a.height)
	}

	top := a.dashboardTop()
	cardsHeight := a.cardsHeight(top)

	body := renderEmpty(!a.filters.IsDefault())
	if len(a.visible) > 0 {
		body = renderCards(a.visible, a.cursor, a.width, cardsHeight)
	}
	if pad := cardsHeight - lipgloss.Height(body); pad > 0 {
		body += strings.Repeat("\n", pad)
	}

	parts := []string{top, body}
	if a.toast != nil {
		parts = append(parts, a.renderToast())
	}
	parts = append(parts, renderStatusBar(a.statusText(), a.width))
	return strings.Join(parts, "\n")
}

// dashboardTop renders everything above the card list.
func (a App) dashboardTop() string {
	s := a.state
	snap := s.Snapshot

	sections := []string{TitleStyle.Render("edgeboard")}
	if s.ErrorMessage != "" {
		sections = append(sections, renderStaleBanner(s.ErrorMessage, a.width))
	}
	if a.beta.Enabled || snap.BetaMode {
		disclaimer := snap.Disclaimer
		if disclaimer == "" {
			disclaimer = a.beta.Disclaimer
		}
		sections = append(sections, renderBetaBanner(a.beta.Banner, disclaimer, a.width))
	}
	sections = append(sections, renderSummary(snap), renderControls(a.filters, len(a.visible), snap.Len()))
	if a.searching {
		sections = append(sections, " "+a.search.View())
	}
	return strings.Join(sections, "\n")
}

// cardsHeight is the number of lines left for cards below top.
func (a App) cardsHeight(top string) int {
	h := a.height - lipgloss.Height(top) - 1
	if a.toast != nil {
		h--
	}
	return max(h, cardHeight)
}

func (a App) renderToast() string {
	style, ok := toastStyles[a.toast.kind.String()]
	if !ok {
		style = toastStyles["info"]
	}
	return " " + style.Render(a.toast.message)
}

func (a App) statusText() string {
	if a.state.IsRefreshing() {
		return a.spinner.View() + " refreshing"
	}
	return "updated " + formatSince(a.state.LastSuccessAt, a.now())
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Visible returns the projected edge list (for testing).
func (a App) Visible() []edges.Edge {
	return a.visible
}

// Filters returns the current filter selection (for testing).
func (a App) Filters() filter.State {
	return a.filters
}

// Selected returns the edge shown in the detail modal, if any.
func (a App) Selected() *edges.Edge {
	if a.modal == nil {
		return nil
	}
	e := a.modal.edge
	return &e
}

// ToastMessage returns the visible toast text, or "".
func (a App) ToastMessage() string {
	if a.toast == nil {
		return ""
	}
	return a.toast.message
}
