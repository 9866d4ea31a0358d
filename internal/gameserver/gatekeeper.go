package gameserver

import (
	"errors"
	"fmt"
	"net/netip"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidTokenHash is returned for a token hash bcrypt cannot read.
var ErrInvalidTokenHash = errors.New("invalid token hash")

// Gatekeeper decides whether a game server may open a session.
// It is immutable and safe for concurrent use.
type Gatekeeper struct {
	tokenHash []byte
	networks  []netip.Prefix
	logger    *zap.Logger
}

// NewGatekeeper creates a Gatekeeper.
//
// An empty tokenHash accepts every token. An empty allowed list accepts
// every address; each entry is a CIDR prefix or a bare address.
// Precondition: logger must be non-nil.
// Postcondition: Returns an error for a malformed hash or network.
func NewGatekeeper(tokenHash string, allowed []string, logger *zap.Logger) (*Gatekeeper, error) {
	g := &Gatekeeper{logger: logger}
	if tokenHash != "" {
		if _, err := bcrypt.Cost([]byte(tokenHash)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
		}
		g.tokenHash = []byte(tokenHash)
	}
	for _, entry := range allowed {
		prefix, err := parseNetwork(entry)
		if err != nil {
			return nil, err
		}
		g.networks = append(g.networks, prefix)
	}
	return g, nil
}

func parseNetwork(entry string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(entry); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("allowed network %q: not a CIDR prefix or address", entry)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// OnServerConnecting reports whether addr may connect at all.
func (g *Gatekeeper) OnServerConnecting(addr netip.Addr) bool {
	g.logger.Info("game server connecting", zap.Stringer("addr", addr))
	if len(g.networks) == 0 {
		return true
	}
	addr = addr.Unmap()
	for _, n := range g.networks {
		if n.Contains(addr) {
			return true
		}
	}
	g.logger.Warn("game server rejected: address not allowed", zap.Stringer("addr", addr))
	return false
}

// OnValidateServerToken reports whether token authenticates the game server
// at addr:port. The token itself is never logged.
func (g *Gatekeeper) OnValidateServerToken(addr netip.Addr, port uint16, token string) bool {
	server := netip.AddrPortFrom(addr, port)
	g.logger.Info("game server sent token",
		zap.Stringer("server", server),
		zap.Bool("token_present", token != ""),
	)
	if g.tokenHash == nil {
		return true
	}
	if err := bcrypt.CompareHashAndPassword(g.tokenHash, []byte(token)); err != nil {
		g.logger.Warn("game server rejected: bad token", zap.Stringer("server", server))
		return false
	}
	return true
}

// HashToken returns the bcrypt hash to configure for token.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("token must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing token: %w", err)
	}
	return string(h), nil
}
