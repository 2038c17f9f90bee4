// Package team runs the teams of one room: formation, swaps, balancing and
// stats. Every membership change resyncs the full team state to the room.
package team

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

// Room is the view of the owning room the manager needs.
type Room interface {
	ID() domain.RoomID
	Members() []domain.ConnID
	HasMember(domain.ConnID) bool
}

type Manager struct {
	room     Room
	cfg      config.TeamConfig
	ids      *core.IDGen
	notify   core.Notifier
	strategy FormationStrategy
	rng      *rand.Rand
	logger   zerolog.Logger

	teams       []*domain.Team
	byConn      map[domain.ConnID]*domain.Team
	clock       time.Duration
	initialized bool
}

func NewManager(room Room, ids *core.IDGen, notify core.Notifier) *Manager {
	return &Manager{
		room:   room,
		ids:    ids,
		notify: notify,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		byConn: make(map[domain.ConnID]*domain.Team),
		logger: log.With().Str("module", "app.team").Uint32("room", uint32(room.ID())).Logger(),
	}
}

// SetRand replaces the shuffle source.
func (m *Manager) SetRand(r *rand.Rand) { m.rng = r }

// Initialize creates cfg.TeamCount teams. A second call is a no-op.
func (m *Manager) Initialize(cfg config.TeamConfig) error {
	if m.initialized {
		m.logger.Warn().Msg("team manager already initialized")
		return nil
	}
	strategy, err := NewStrategy(cfg.FormationMode, cfg.PartyBias)
	if err != nil {
		return err
	}
	m.cfg = cfg
	m.strategy = strategy
	m.teams = make([]*domain.Team, 0, cfg.TeamCount)
	for i := 0; i < cfg.TeamCount; i++ {
		m.teams = append(m.teams, &domain.Team{
			ID:      domain.TeamID(m.ids.Next()),
			Name:    pick(cfg.Names, i, fmt.Sprintf("Team %d", i+1)),
			Color:   pick(cfg.Colors, i, "#9e9e9e"),
			MaxSize: cfg.MaxTeamSize,
		})
	}
	m.initialized = true
	m.logger.Info().Int("teams", cfg.TeamCount).Str("formation", strategy.Name()).Msg("teams initialized")
	return nil
}

func pick(values []string, i int, fallback string) string {
	if i < len(values) && values[i] != "" {
		return values[i]
	}
	return fallback
}

func (m *Manager) Initialized() bool { return m.initialized }

// SetStrategy swaps the formation strategy.
func (m *Manager) SetStrategy(s FormationStrategy) { m.strategy = s }

func (m *Manager) Strategy() FormationStrategy { return m.strategy }

func (m *Manager) Teams() []*domain.Team { return m.teams }

func (m *Manager) Team(id domain.TeamID) (*domain.Team, bool) {
	for _, t := range m.teams {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

func (m *Manager) TeamOf(conn domain.ConnID) (*domain.Team, bool) {
	t, ok := m.byConn[conn]
	return t, ok
}

// Teammates returns the members of conn's team, conn included.
func (m *Manager) Teammates(conn domain.ConnID) []domain.ConnID {
	t, ok := m.byConn[conn]
	if !ok {
		return nil
	}
	return memberIDs(t)
}

// Unassigned lists room members without a team, in room order.
func (m *Manager) Unassigned() []domain.ConnID {
	var out []domain.ConnID
	for _, c := range m.room.Members() {
		if _, ok := m.byConn[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Update advances the manager's clock.
func (m *Manager) Update(dt time.Duration) { m.clock += dt }

// AssignPlayerToTeam asks the formation strategy for a team. A nil team
// with a nil error means the player waits (manual or captain modes).
func (m *Manager) AssignPlayerToTeam(conn domain.ConnID, tc *TeamContext) (*domain.Team, error) {
	if !m.initialized {
		return nil, domain.ErrTeamsDisabled
	}
	if t, ok := m.byConn[conn]; ok {
		return t, domain.ErrAlreadyOnTeam
	}
	t := m.strategy.SelectTeam(m.teams, conn, tc)
	if t == nil {
		if m.allFull() {
			return nil, domain.ErrAllTeamsFull
		}
		m.logger.Debug().Str("sid", string(conn)).Str("formation", m.strategy.Name()).Msg("player awaiting team")
		m.SyncAll()
		return nil, nil
	}
	var skill float64
	if tc != nil {
		skill = tc.Skill
	}
	m.add(conn, t, skill)
	m.logger.Info().Str("sid", string(conn)).Uint32("team", uint32(t.ID)).Msg("player assigned")
	m.sendAssignment(conn, t)
	m.SyncAll()
	return t, nil
}

func (m *Manager) allFull() bool {
	for _, t := range m.teams {
		if !t.IsFull() {
			return false
		}
	}
	return true
}

func (m *Manager) add(conn domain.ConnID, t *domain.Team, skill float64) {
	t.Members = append(t.Members, &domain.TeamMember{
		Member: domain.Member{Conn: conn, JoinedAt: m.clock},
		Skill:  skill,
	})
	m.byConn[conn] = t
}

func (m *Manager) moveMember(tm *domain.TeamMember, from, to *domain.Team) {
	from.RemoveMember(tm.Conn)
	tm.JoinedAt = m.clock
	to.Members = append(to.Members, tm)
	m.byConn[tm.Conn] = to
}

// RemovePlayer drops conn from its team. Reports whether it had one.
func (m *Manager) RemovePlayer(conn domain.ConnID) bool {
	t, ok := m.byConn[conn]
	if !ok {
		return false
	}
	t.RemoveMember(conn)
	delete(m.byConn, conn)
	m.logger.Info().Str("sid", string(conn)).Uint32("team", uint32(t.ID)).Msg("player removed from team")
	m.SyncAll()
	return true
}

// SwapPlayer moves conn to target. The requester always gets a
// TeamSwapResult.
func (m *Manager) SwapPlayer(conn domain.ConnID, target domain.TeamID) error {
	err := m.swap(conn, target)
	res := protocol.TeamSwapResult{Type: protocol.TypeTeamSwapResult, Success: err == nil, TeamID: target}
	if err != nil {
		res.Error = err.Error()
	}
	m.notify.Send(conn, res)
	if err != nil {
		return err
	}
	m.SyncAll()
	return nil
}

func (m *Manager) swap(conn domain.ConnID, target domain.TeamID) error {
	if !m.initialized {
		return domain.ErrTeamsDisabled
	}
	if !m.cfg.AllowSwap {
		return domain.ErrSwapDisabled
	}
	if !m.room.HasMember(conn) {
		return domain.ErrNotInRoom
	}
	to, ok := m.Team(target)
	if !ok {
		return domain.ErrTeamNotFound
	}
	from, onTeam := m.byConn[conn]
	if onTeam && from.ID == target {
		return domain.ErrAlreadyOnTeam
	}
	if to.IsFull() {
		return domain.ErrTeamFull
	}
	if !onTeam {
		m.add(conn, to, 0)
	} else {
		tm, _ := from.Member(conn)
		m.moveMember(tm, from, to)
	}
	m.logger.Info().Str("sid", string(conn)).Uint32("team", uint32(target)).Msg("player swapped team")
	m.sendAssignment(conn, to)
	return nil
}

// PickPlayer lets a captain draft an unassigned room member. Captains pick
// in turn: the team with the fewest members goes next.
func (m *Manager) PickPlayer(captain, target domain.ConnID) error {
	if !m.initialized {
		return domain.ErrTeamsDisabled
	}
	t, ok := m.byConn[captain]
	if !ok || t.Members[0].Conn != captain {
		return domain.ErrNotCaptain
	}
	if !m.room.HasMember(target) {
		return domain.ErrNotInRoom
	}
	if _, taken := m.byConn[target]; taken {
		return domain.ErrAlreadyOnTeam
	}
	if t.IsFull() {
		return domain.ErrTeamFull
	}
	if next := m.nextPicker(); next != t {
		return domain.ErrNotCaptainsTurn
	}
	m.add(target, t, 0)
	m.logger.Info().Str("captain", string(captain)).Str("sid", string(target)).Msg("player picked")
	m.sendAssignment(target, t)
	m.SyncAll()
	return nil
}

func (m *Manager) nextPicker() *domain.Team {
	var next *domain.Team
	for _, t := range m.teams {
		if t.Size() == 0 || t.IsFull() {
			continue
		}
		if next == nil || t.Size() < next.Size() {
			next = t
		}
	}
	return next
}

// AutoBalance moves the most recently joined members from the largest team
// to the smallest until sizes differ by at most one. Moves are sent as a diff
// before the full sync.
func (m *Manager) AutoBalance() []protocol.BalanceMove {
	if !m.initialized || len(m.teams) < 2 {
		return nil
	}
	var moves []protocol.BalanceMove
	for range len(m.byConn) + 1 {
		largest, smallest := m.extremes()
		if largest == nil || smallest == nil || largest.Size()-smallest.Size() <= 1 {
			break
		}
		tm := largest.Members[len(largest.Members)-1]
		m.moveMember(tm, largest, smallest)
		moves = append(moves, protocol.BalanceMove{Conn: tm.Conn, From: largest.ID, To: smallest.ID})
	}
	if len(moves) == 0 {
		return nil
	}
	m.logger.Info().Int("moves", len(moves)).Msg("teams balanced")
	m.notify.Broadcast(m.room.Members(), protocol.TeamBalanceChanges{Type: protocol.TypeTeamBalanceChanges, Moves: moves})
	for _, mv := range moves {
		t, _ := m.Team(mv.To)
		m.sendAssignment(mv.Conn, t)
	}
	m.SyncAll()
	return moves
}

// extremes returns the first largest team and the first smallest team that
// can still take a member.
func (m *Manager) extremes() (largest, smallest *domain.Team) {
	for _, t := range m.teams {
		if largest == nil || t.Size() > largest.Size() {
			largest = t
		}
		if t.IsFull() {
			continue
		}
		if smallest == nil || t.Size() < smallest.Size() {
			smallest = t
		}
	}
	return largest, smallest
}

// Shuffle empties every team and deals every room member out again
// round-robin in random order. Members still waiting for a team are dealt
// in too; assigned members keep their stats.
func (m *Manager) Shuffle() {
	if !m.initialized || len(m.teams) == 0 {
		return
	}
	var pool []*domain.TeamMember
	for _, t := range m.teams {
		pool = append(pool, t.Members...)
		t.Members = nil
	}
	for _, c := range m.room.Members() {
		if _, ok := m.byConn[c]; !ok {
			pool = append(pool, &domain.TeamMember{Member: domain.Member{Conn: c}})
		}
	}
	m.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	i := 0
	for _, tm := range pool {
		var dest *domain.Team
		for range m.teams {
			cand := m.teams[i%len(m.teams)]
			i++
			if !cand.IsFull() {
				dest = cand
				break
			}
		}
		if dest == nil {
			delete(m.byConn, tm.Conn)
			continue
		}
		tm.JoinedAt = m.clock
		dest.Members = append(dest.Members, tm)
		m.byConn[tm.Conn] = dest
	}
	m.logger.Info().Int("players", len(pool)).Msg("teams shuffled")
	for _, tm := range pool {
		if t, ok := m.byConn[tm.Conn]; ok {
			m.sendAssignment(tm.Conn, t)
		}
	}
	m.SyncAll()
}

func (m *Manager) RecordKill(conn domain.ConnID) error {
	return m.record(conn, func(s *domain.TeamStats) { s.Kills++ })
}

func (m *Manager) RecordDeath(conn domain.ConnID) error {
	return m.record(conn, func(s *domain.TeamStats) { s.Deaths++ })
}

func (m *Manager) RecordAssist(conn domain.ConnID) error {
	return m.record(conn, func(s *domain.TeamStats) { s.Assists++ })
}

func (m *Manager) AddScore(conn domain.ConnID, points int) error {
	return m.record(conn, func(s *domain.TeamStats) { s.Score += points })
}

// record applies fn to both the member and its team aggregate.
func (m *Manager) record(conn domain.ConnID, fn func(*domain.TeamStats)) error {
	t, ok := m.byConn[conn]
	if !ok {
		return domain.ErrNotOnTeam
	}
	tm, _ := t.Member(conn)
	fn(&tm.Stats)
	fn(&t.Stats)
	return nil
}

func (m *Manager) ResetAllStats() {
	for _, t := range m.teams {
		t.Stats = domain.TeamStats{}
		for _, tm := range t.Members {
			tm.Stats = domain.TeamStats{}
		}
	}
	m.SyncAll()
}

// Clear drops all teams; used on room teardown.
func (m *Manager) Clear() {
	for _, t := range m.teams {
		m.ids.Release(uint32(t.ID))
	}
	m.teams = nil
	clear(m.byConn)
	m.initialized = false
}

// SyncAll sends the full team state to every room member.
func (m *Manager) SyncAll() {
	m.notify.Broadcast(m.room.Members(), protocol.TeamSync{Type: protocol.TypeTeamSync, Teams: m.Snapshot()})
}

func (m *Manager) Snapshot() []protocol.TeamView {
	out := make([]protocol.TeamView, 0, len(m.teams))
	for _, t := range m.teams {
		v := protocol.TeamView{
			ID:      t.ID,
			Name:    t.Name,
			Color:   t.Color,
			MaxSize: t.MaxSize,
			Stats:   t.Stats,
			Members: make([]protocol.TeamMemberView, 0, len(t.Members)),
		}
		for _, tm := range t.Members {
			v.Members = append(v.Members, protocol.TeamMemberView{
				Conn:    tm.Conn,
				Kills:   tm.Stats.Kills,
				Deaths:  tm.Stats.Deaths,
				Assists: tm.Stats.Assists,
				Score:   tm.Stats.Score,
			})
		}
		out = append(out, v)
	}
	return out
}

func (m *Manager) sendAssignment(conn domain.ConnID, t *domain.Team) {
	m.notify.Send(conn, protocol.TeamAssignment{
		Type:    protocol.TypeTeamAssignment,
		TeamID:  t.ID,
		Name:    t.Name,
		Color:   t.Color,
		Members: memberIDs(t),
	})
}

func memberIDs(t *domain.Team) []domain.ConnID {
	out := make([]domain.ConnID, 0, len(t.Members))
	for _, tm := range t.Members {
		out = append(out, tm.Conn)
	}
	return out
}
