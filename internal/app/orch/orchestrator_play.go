package orch

import (
	"maps"
	"strings"

	"github.com/dkeye/Lobby/internal/app/rooms"
	"github.com/dkeye/Lobby/internal/app/vote"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

// Chat channels.
const (
	ChannelRoom  = "room"
	ChannelParty = "party"
	ChannelTeam  = "team"
)

func (o *Orchestrator) teamsOf(conn domain.ConnID) (*rooms.Room, error) {
	room, ok := o.Rooms.RoomOf(conn)
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	if room.Teams == nil {
		return nil, domain.ErrTeamsDisabled
	}
	return room, nil
}

func (o *Orchestrator) SwapTeam(conn domain.ConnID, req protocol.SwapTeamRequest) error {
	room, err := o.teamsOf(conn)
	if err != nil {
		return err
	}
	return room.Teams.SwapPlayer(conn, domain.TeamID(req.TeamID))
}

func (o *Orchestrator) PickPlayer(conn domain.ConnID, req protocol.PickPlayerRequest) error {
	room, err := o.teamsOf(conn)
	if err != nil {
		return err
	}
	return room.Teams.PickPlayer(conn, domain.ConnID(req.Target))
}

func (o *Orchestrator) BalanceTeams(conn domain.ConnID) error {
	room, err := o.moderated(conn)
	if err != nil {
		return err
	}
	if room.Teams == nil {
		return domain.ErrTeamsDisabled
	}
	room.Teams.AutoBalance()
	return nil
}

func (o *Orchestrator) ShuffleTeams(conn domain.ConnID) error {
	room, err := o.moderated(conn)
	if err != nil {
		return err
	}
	if room.Teams == nil {
		return domain.ErrTeamsDisabled
	}
	room.Teams.Shuffle()
	return nil
}

// StartVote passes the room's current map to map votes so it is left out
// of the options.
func (o *Orchestrator) StartVote(conn domain.ConnID, req protocol.StartVoteRequest) error {
	room, ok := o.Rooms.RoomOf(conn)
	if !ok {
		return domain.ErrNotInRoom
	}
	data := maps.Clone(req.CustomData)
	if req.TypeID == vote.TypeChangeMap {
		if data == nil {
			data = make(map[string]string)
		}
		data["current"] = room.Meta().CustomData[mapKey]
	}
	_, err := room.Votes.StartVote(conn, req.TypeID, data)
	return err
}

func (o *Orchestrator) CastVote(conn domain.ConnID, req protocol.CastVoteRequest) error {
	room, ok := o.Rooms.RoomOf(conn)
	if !ok {
		return domain.ErrNotInRoom
	}
	return room.Votes.CastVote(conn, domain.VoteID(req.VoteID), req.OptionIndex)
}

func (o *Orchestrator) CancelVote(conn domain.ConnID, req protocol.CancelVoteRequest) error {
	room, ok := o.Rooms.RoomOf(conn)
	if !ok {
		return domain.ErrNotInRoom
	}
	return room.Votes.CancelVote(conn, domain.VoteID(req.VoteID))
}

// Chat relays text to the sender's room, party or team.
func (o *Orchestrator) Chat(conn domain.ConnID, req protocol.ChatRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return domain.Denied(domain.ErrBadRequest, "empty message")
	}
	if o.chat != nil && !o.chat.Allow(conn) {
		return domain.ErrRateLimited
	}

	var to []domain.ConnID
	switch req.Channel {
	case ChannelRoom:
		room, ok := o.Rooms.RoomOf(conn)
		if !ok {
			return domain.ErrNotInRoom
		}
		to = room.Members()
	case ChannelParty:
		p, ok := o.Parties.PartyOf(conn)
		if !ok {
			return domain.ErrNotInParty
		}
		to = p.MemberIDs()
	case ChannelTeam:
		room, err := o.teamsOf(conn)
		if err != nil {
			return err
		}
		if to = room.Teams.Teammates(conn); len(to) == 0 {
			return domain.ErrNotOnTeam
		}
	default:
		return domain.Denied(domain.ErrBadRequest, "unknown channel")
	}

	o.notify.Broadcast(to, protocol.Chat{
		Type:    protocol.TypeChat,
		Channel: req.Channel,
		From:    conn,
		Name:    o.user(conn).Username,
		Text:    text,
	})
	return nil
}
