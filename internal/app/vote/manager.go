// Package vote runs in-room votes: one active vote at a time, resolved by
// participation and threshold rules and guarded by cooldowns.
package vote

import (
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

const defaultHistory = 20

type Manager struct {
	env       *Env
	cfg       config.VoteConfig
	ids       *core.IDGen
	notify    core.Notifier
	rng       *rand.Rand
	now       func() time.Time
	logger    zerolog.Logger
	types     map[string]Type
	order     []string
	cooldowns *Cooldowns

	active     *domain.ActiveVote
	activeType Type
	history    []domain.VoteResult

	Started core.Listeners[*domain.ActiveVote]
	Ended   core.Listeners[domain.VoteResult]
}

func NewManager(env *Env, cfg config.VoteConfig, ids *core.IDGen, notify core.Notifier) *Manager {
	return &Manager{
		env:       env,
		cfg:       cfg,
		ids:       ids,
		notify:    notify,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
		types:     make(map[string]Type),
		cooldowns: NewCooldowns(),
		logger:    log.With().Str("module", "app.vote").Uint32("room", uint32(env.Room.ID())).Logger(),
	}
}

// SetRand replaces the source used for random tie breaks.
func (m *Manager) SetRand(r *rand.Rand) { m.rng = r }

func (m *Manager) Enabled() bool { return m.cfg.Enabled }

// RegisterType adds a vote type. Ids are unique per room.
func (m *Manager) RegisterType(t Type) error {
	if _, ok := m.types[t.ID()]; ok {
		return domain.ErrDuplicateType
	}
	m.types[t.ID()] = t
	m.order = append(m.order, t.ID())
	m.logger.Debug().Str("type", t.ID()).Msg("vote type registered")
	return nil
}

// RegisterBuiltins registers the stock types with room defaults.
func (m *Manager) RegisterBuiltins() {
	for _, t := range Builtins(SettingsFromConfig(m.cfg), m.cfg.MapPool) {
		if err := m.RegisterType(t); err != nil {
			m.logger.Warn().Err(err).Str("type", t.ID()).Msg("builtin vote type skipped")
		}
	}
}

// Types lists registered type ids in registration order.
func (m *Manager) Types() []string { return slices.Clone(m.order) }

func (m *Manager) Active() (*domain.ActiveVote, bool) { return m.active, m.active != nil }

func (m *Manager) History() []domain.VoteResult { return slices.Clone(m.history) }

func (m *Manager) Cooldowns() *Cooldowns { return m.cooldowns }

// StartVote opens a vote of typeID on behalf of initiator.
func (m *Manager) StartVote(initiator domain.ConnID, typeID string, data map[string]string) (*domain.ActiveVote, error) {
	if !m.cfg.Enabled {
		return nil, domain.ErrVotesDisabled
	}
	if m.active != nil {
		return nil, domain.ErrVoteActive
	}
	t, ok := m.types[typeID]
	if !ok {
		return nil, domain.ErrUnknownVoteType
	}
	if left := m.cooldowns.Remaining(typeID, initiator); left > 0 {
		return nil, domain.OnCooldown(domain.ErrVoteOnCooldown, left)
	}
	if ok, reason := t.CanInitiate(m.env, initiator, data); !ok {
		return nil, domain.Denied(domain.ErrCannotInitiate, reason)
	}
	options := t.Options(m.env, initiator, data)
	if len(options) < 2 {
		return nil, domain.ErrNotEnoughOptions
	}

	rules := t.Settings()
	v := &domain.ActiveVote{
		ID:         domain.VoteID(m.ids.Next()),
		TypeID:     typeID,
		Initiator:  initiator,
		Question:   t.Question(m.env, initiator, data),
		Options:    options,
		CustomData: maps.Clone(data),
		StartTime:  m.now(),
		Duration:   rules.Duration,
		Votes:      make(map[domain.ConnID]int),
	}
	m.active = v
	m.activeType = t

	t.OnVoteStarted(m.env, v)
	m.notify.Broadcast(m.env.Room.Members(), protocol.VoteStarted{
		Type:      protocol.TypeVoteStarted,
		VoteID:    v.ID,
		TypeID:    v.TypeID,
		Initiator: v.Initiator,
		Question:  v.Question,
		Options:   v.Options,
		Duration:  v.Duration.Seconds(),
	})
	m.Started.Emit(v)
	m.logger.Info().Stringer("vote", v.ID).Str("type", typeID).Str("initiator", string(initiator)).Msg("vote started")
	return v, nil
}

// CastVote records voter's choice. voteID 0 targets the active vote.
func (m *Manager) CastVote(voter domain.ConnID, voteID domain.VoteID, option int) error {
	v := m.active
	if v == nil {
		return domain.ErrNoActiveVote
	}
	if voteID != 0 && voteID != v.ID {
		return domain.ErrVoteMismatch
	}
	if option < 0 || option >= len(v.Options) {
		return domain.ErrInvalidOption
	}
	if !m.activeType.CanVote(m.env, v, voter) {
		return domain.ErrCannotVote
	}
	if _, voted := v.Votes[voter]; voted && !m.activeType.Settings().AllowVoteChange {
		return domain.ErrAlreadyVoted
	}
	v.Votes[voter] = option
	m.broadcastUpdate()
	m.CheckVoteEnd()
	return nil
}

// CancelVote force-ends the active vote. Only admins and owners may.
func (m *Manager) CancelVote(by domain.ConnID, voteID domain.VoteID) error {
	v := m.active
	if v == nil {
		return domain.ErrNoActiveVote
	}
	if voteID != 0 && voteID != v.ID {
		return domain.ErrVoteMismatch
	}
	if !m.env.role(by).AtLeast(domain.RoleAdmin) {
		return domain.ErrNoPermission
	}
	m.end(domain.EndCancelled)
	return nil
}

// CheckVoteEnd resolves the active vote when its timer ran out or every
// eligible voter has voted.
func (m *Manager) CheckVoteEnd() {
	v := m.active
	if v == nil {
		return
	}
	if v.Elapsed >= v.Duration {
		m.end(domain.EndTimerExpired)
		return
	}
	eligible, cast := m.counts()
	if eligible > 0 && cast >= eligible {
		m.end(domain.EndAllVoted)
	}
}

// counts returns eligible voters and how many of them voted.
func (m *Manager) counts() (eligible, cast int) {
	v := m.active
	for _, c := range m.env.Room.Members() {
		if !m.activeType.CanVote(m.env, v, c) {
			continue
		}
		eligible++
		if _, ok := v.Votes[c]; ok {
			cast++
		}
	}
	return eligible, cast
}

// HandlePlayerLeft drops conn's ballot and cooldowns. The vote ends when
// the initiator leaves.
func (m *Manager) HandlePlayerLeft(conn domain.ConnID) {
	m.cooldowns.RemovePlayer(conn)
	v := m.active
	if v == nil {
		return
	}
	if v.Initiator == conn {
		m.end(domain.EndInitiatorLeft)
		return
	}
	if _, ok := v.Votes[conn]; ok {
		delete(v.Votes, conn)
		m.broadcastUpdate()
	}
	m.CheckVoteEnd()
}

// OnRoomStateChanged ends the active vote when its type does not survive
// the new state.
func (m *Manager) OnRoomStateChanged(to domain.RoomState) {
	if m.active == nil {
		return
	}
	if slices.Contains(m.activeType.Settings().EndOn, to) {
		m.end(domain.EndStateChanged)
	}
}

func (m *Manager) Update(dt time.Duration) {
	m.cooldowns.Update(dt)
	if m.active == nil {
		return
	}
	m.active.Elapsed += dt
	m.CheckVoteEnd()
}

// Shutdown ends any active vote because the room is closing.
func (m *Manager) Shutdown() {
	if m.active != nil {
		m.end(domain.EndRoomClosed)
	}
	m.cooldowns.Clear()
}

// end is the single path every vote takes out of the active state.
func (m *Manager) end(reason domain.EndReason) domain.VoteResult {
	v, t := m.active, m.activeType
	res := m.resolve(v, t, reason)
	m.active, m.activeType = nil, nil
	m.ids.Release(uint32(v.ID))

	// Forced ends start no cooldown. A failure holds the room at the base
	// cooldown and the initiator at the multiplied one.
	rules := t.Settings()
	if !reason.Forced() {
		m.cooldowns.Start(v.TypeID, rules.Cooldown)
		if !res.Passed {
			penalty := time.Duration(float64(rules.Cooldown) * m.cfg.FailedCooldownMultiplier)
			m.cooldowns.StartPlayer(v.Initiator, v.TypeID, penalty)
		}
	}

	t.OnVoteEnded(m.env, v, res)
	if res.Passed {
		t.ApplyResult(m.env, v, res)
	}

	m.notify.Broadcast(m.env.Room.Members(), protocol.VoteEnded{
		Type:          protocol.TypeVoteEnded,
		VoteID:        v.ID,
		Passed:        res.Passed,
		Reason:        string(res.Reason),
		WinningOption: res.WinningOption,
		Tally:         res.Tally,
		Participation: res.Participation,
	})

	m.history = append(m.history, res)
	limit := m.cfg.HistorySize
	if limit <= 0 {
		limit = defaultHistory
	}
	if over := len(m.history) - limit; over > 0 {
		m.history = slices.Delete(m.history, 0, over)
	}
	m.Ended.Emit(res)

	m.logger.Info().
		Stringer("vote", v.ID).
		Str("type", v.TypeID).
		Str("reason", string(reason)).
		Bool("passed", res.Passed).
		Int("winner", res.WinningOption).
		Float64("participation", res.Participation).
		Msg("vote ended")
	return res
}

func (m *Manager) resolve(v *domain.ActiveVote, t Type, reason domain.EndReason) domain.VoteResult {
	eligible, _ := m.counts()
	res := domain.VoteResult{
		VoteID:        v.ID,
		TypeID:        v.TypeID,
		Initiator:     v.Initiator,
		Reason:        reason,
		WinningOption: domain.NoWinner,
		Tally:         v.Tally(),
		Eligible:      eligible,
		Cast:          len(v.Votes),
		CustomData:    v.CustomData,
	}
	if eligible > 0 {
		res.Participation = float64(res.Cast) / float64(eligible)
	}
	if reason.Forced() || res.Cast == 0 {
		return res
	}
	rules := t.Settings()
	if res.Participation < rules.MinParticipationRate {
		return res
	}

	winner := m.winner(v, res.Tally, rules.TieResolution)
	if winner == domain.NoWinner {
		return res
	}
	res.WinningOption = winner
	share := float64(res.Tally[winner]) / float64(res.Cast)
	if share < rules.WinningThreshold {
		return res
	}
	if rules.PassOption >= 0 && winner != rules.PassOption {
		return res
	}
	res.Passed = true
	return res
}

// winner picks the top option, applying tie resolution when several
// options share the top count.
func (m *Manager) winner(v *domain.ActiveVote, tally []int, tie domain.TieResolution) int {
	top := slices.Max(tally)
	var tied []int
	for i, n := range tally {
		if n == top {
			tied = append(tied, i)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	switch tie {
	case domain.TieFirstOption:
		return tied[0]
	case domain.TieLastOption:
		return tied[len(tied)-1]
	case domain.TieRandom:
		return tied[m.rng.IntN(len(tied))]
	case domain.TieInitiatorChoice:
		if choice, ok := v.Votes[v.Initiator]; ok && slices.Contains(tied, choice) {
			return choice
		}
	}
	return domain.NoWinner
}

func (m *Manager) broadcastUpdate() {
	v := m.active
	eligible, cast := m.counts()
	m.notify.Broadcast(m.env.Room.Members(), protocol.VoteUpdate{
		Type:      protocol.TypeVoteUpdate,
		VoteID:    v.ID,
		Tally:     v.Tally(),
		Voted:     cast,
		Eligible:  eligible,
		Remaining: v.Remaining().Seconds(),
	})
}
