// Package conductor defines the data model of the conductor app interface:
// hashes, cell ids, installed app descriptors and zome call invocations.
package conductor

import (
	"encoding/base64"
	"strings"
)

// HoloHash is a raw 39-byte conductor hash: 3-byte type prefix, 32-byte digest, 4-byte location.
type HoloHash []byte

// DnaHash identifies the DNA (application context) of a cell.
type DnaHash = HoloHash

// AgentPubKey identifies the agent (calling identity) of a cell.
type AgentPubKey = HoloHash

// String renders the hash the way the conductor prints it: "u" followed by unpadded base64url.
func (h HoloHash) String() string {
	if len(h) == 0 {
		return ""
	}
	return "u" + base64.RawURLEncoding.EncodeToString(h)
}

// ParseHoloHash parses the textual form produced by String.
func ParseHoloHash(s string) (HoloHash, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, "u"))
	if err != nil {
		return nil, err
	}
	return HoloHash(raw), nil
}

// CellID addresses a cell: (dna hash, agent pub key).
type CellID [2]HoloHash

// NewCellID builds a CellID from its two components.
func NewCellID(dna DnaHash, agent AgentPubKey) CellID {
	return CellID{dna, agent}
}

// DnaHash returns the application-context component.
func (c CellID) DnaHash() DnaHash { return c[0] }

// AgentPubKey returns the calling-identity component.
func (c CellID) AgentPubKey() AgentPubKey { return c[1] }

// IsZero reports whether either component is missing.
func (c CellID) IsZero() bool {
	return len(c[0]) == 0 || len(c[1]) == 0
}

func (c CellID) String() string {
	return c[0].String() + ":" + c[1].String()
}

// InstalledCell is one entry of an installed app's cell sequence.
type InstalledCell struct {
	CellID   CellID `msgpack:"cell_id" json:"cell_id"`
	CellNick string `msgpack:"cell_nick" json:"cell_nick"`
}

// InstalledAppInfo describes an installed app as returned by app_info.
type InstalledAppInfo struct {
	InstalledAppID string          `msgpack:"installed_app_id" json:"installed_app_id"`
	CellData       []InstalledCell `msgpack:"cell_data" json:"cell_data"`
	Status         interface{}     `msgpack:"status,omitempty" json:"status,omitempty"`
}

// FirstCell returns the first cell of the app, if any.
func (a *InstalledAppInfo) FirstCell() (InstalledCell, bool) {
	if a == nil || len(a.CellData) == 0 {
		return InstalledCell{}, false
	}
	return a.CellData[0], true
}

// AppInfoRequest is the data of an app_info request.
type AppInfoRequest struct {
	InstalledAppID string `msgpack:"installed_app_id"`
}

// CapSecret is a capability secret. Nil means the default, unrestricted capability.
type CapSecret []byte

// CapSecretSize is the length of a conductor capability secret.
const CapSecretSize = 64

// ZomeCallInvocation is the data of a zome_call_invocation request.
type ZomeCallInvocation struct {
	Cap        CapSecret   `msgpack:"cap"`
	CellID     CellID      `msgpack:"cell_id"`
	ZomeName   string      `msgpack:"zome_name"`
	FnName     string      `msgpack:"fn_name"`
	Provenance AgentPubKey `msgpack:"provenance"`
	Payload    []byte      `msgpack:"payload"`
}

// NewZomeCall builds an invocation against cell. The provenance is always the
// agent of the cell; calls are attributed to the identity bound to the cell.
func NewZomeCall(cell CellID, zome, fn string, cap CapSecret, payload []byte) *ZomeCallInvocation {
	return &ZomeCallInvocation{
		Cap:        cap,
		CellID:     cell,
		ZomeName:   zome,
		FnName:     fn,
		Provenance: cell.AgentPubKey(),
		Payload:    payload,
	}
}
