// Package namer derives identifiers for proxies.
package namer

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/anoideaopen/proxymanager/core/config"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ddulesov/gogost/gost34112012256"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/sha3"
)

// Namer returns a fresh identifier for a proxy of class.
type Namer interface {
	Identifier(class string) string
}

// New returns the namer selected by cfg.
func New(cfg config.NamingConfig) (Namer, error) {
	switch cfg.Strategy {
	case config.NamingUUID, "":
		return UUIDNamer{Prefix: cfg.Prefix}, nil
	case config.NamingULID:
		return ULIDNamer{Prefix: cfg.Prefix}, nil
	case config.NamingDigest:
		return &DigestNamer{Prefix: cfg.Prefix}, nil
	case config.NamingGOST:
		return &GOSTNamer{Prefix: cfg.Prefix}, nil
	default:
		return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownNamingStrategy, cfg.Strategy)
	}
}

// UUIDNamer issues random identifiers.
type UUIDNamer struct {
	Prefix string
}

func (n UUIDNamer) Identifier(string) string {
	return join(n.Prefix, uuid.NewString())
}

// ULIDNamer issues identifiers that sort by creation time.
type ULIDNamer struct {
	Prefix string
}

func (n ULIDNamer) Identifier(string) string {
	return join(n.Prefix, ulid.Make().String())
}

// DigestNamer issues reproducible identifiers: the sha3 digest of the class
// name and a per-namer sequence number.
type DigestNamer struct {
	Prefix string

	seq atomic.Uint64
}

func (n *DigestNamer) Identifier(class string) string {
	h := sha3.New256()
	h.Write([]byte(class))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(n.seq.Add(1), 10)))

	return join(n.Prefix, "Generated"+hex.EncodeToString(h.Sum(nil)[:16]))
}

// GOSTNamer issues reproducible identifiers like DigestNamer, hashing with
// GOST R 34.11-2012 (256 bit) and encoding the digest in base58.
type GOSTNamer struct {
	Prefix string

	seq atomic.Uint64
}

func (n *GOSTNamer) Identifier(class string) string {
	h := gost34112012256.New()
	h.Write([]byte(class))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(n.seq.Add(1), 10)))

	return join(n.Prefix, base58.Encode(h.Sum(nil)))
}

func join(prefix, id string) string {
	if prefix == "" {
		return id
	}

	return prefix + "-" + id
}
