package identity

import (
	"context"
	"sync"

	"github.com/openshelf/openshelf"
)

// TokenSource yields the current raw token from wherever the deployment keeps
// it (a file, an agent, an environment handoff). An empty token with a nil
// error means "signed out".
type TokenSource func(ctx context.Context) (string, error)

// TokenProvider implements openshelf.IdentityProvider on top of a token
// source and a parser. Refresh re-reads the source, so rotating the token at
// the source is all a deployment needs to do.
type TokenProvider struct {
	parser *TokenParser
	source TokenSource

	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]func(*openshelf.Session)
	current *openshelf.Session
}

var _ openshelf.IdentityProvider = (*TokenProvider)(nil)

// NewTokenProvider returns a provider over the given parser and source.
func NewTokenProvider(parser *TokenParser, source TokenSource) *TokenProvider {
	return &TokenProvider{
		parser: parser,
		source: source,
		subs:   map[uint64]func(*openshelf.Session){},
	}
}

// GetSession parses the source's current token into a session, or returns nil
// when the source holds no token.
func (p *TokenProvider) GetSession(ctx context.Context) (*openshelf.Session, error) {
	raw, err := p.source(ctx)
	if err != nil {
		return nil, &openshelf.Error{
			Code: openshelf.EUnavailable,
			Msg:  "identity token source unavailable",
			Err:  err,
		}
	}
	if raw == "" {
		return nil, nil
	}

	session, err := p.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()
	return session, nil
}

// Refresh re-reads the token source and returns the renewed session.
func (p *TokenProvider) Refresh(ctx context.Context) (*openshelf.Session, error) {
	session, err := p.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &openshelf.Error{
			Code: openshelf.EUnauthorized,
			Msg:  "no session to refresh",
		}
	}
	p.notify(session)
	return session, nil
}

// Logout forgets the current session and notifies subscribers.
func (p *TokenProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.notify(nil)
	return nil
}

// Subscribe registers a handler for out-of-band session changes.
func (p *TokenProvider) Subscribe(fn func(*openshelf.Session)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *TokenProvider) notify(s *openshelf.Session) {
	p.mu.Lock()
	fns := make([]func(*openshelf.Session), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
