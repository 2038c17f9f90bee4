package orch

import (
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

func (o *Orchestrator) CreateParty(conn domain.ConnID, req protocol.CreatePartyRequest) error {
	_, err := o.Parties.CreateParty(conn, req.MaxSize, req.Name)
	return err
}

// InvitePlayer only reaches connected targets.
func (o *Orchestrator) InvitePlayer(conn domain.ConnID, req protocol.InvitePlayerRequest) error {
	target := domain.ConnID(req.Target)
	if _, ok := o.Conns.Get(target); !ok {
		return domain.ErrUnknownConn
	}
	return o.Parties.InvitePlayer(domain.PartyID(req.PartyID), conn, target)
}

func (o *Orchestrator) RespondInvite(conn domain.ConnID, req protocol.RespondInviteRequest) error {
	if req.Accept {
		return o.Parties.AcceptInvite(conn, domain.PartyID(req.PartyID))
	}
	return o.Parties.DeclineInvite(conn, domain.PartyID(req.PartyID))
}

func (o *Orchestrator) LeaveParty(conn domain.ConnID) error {
	return o.Parties.LeaveParty(conn)
}

func (o *Orchestrator) KickPartyMember(conn domain.ConnID, req protocol.KickPartyMemberRequest) error {
	return o.Parties.KickMember(domain.PartyID(req.PartyID), conn, domain.ConnID(req.Target))
}

func (o *Orchestrator) JoinParty(conn domain.ConnID, req protocol.JoinPartyRequest) error {
	return o.Parties.JoinPublicParty(conn, domain.PartyID(req.PartyID))
}
