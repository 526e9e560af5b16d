package core

import "github.com/upe-portal/interview-relay/internal/domain"

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	meta *domain.Connection
	sig  SignalConnection
}

func NewMemberSession(meta *domain.Connection, sig SignalConnection) MemberSession {
	return &memberSession{meta: meta, sig: sig}
}

func (m *memberSession) Meta() *domain.Connection { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.sig }
