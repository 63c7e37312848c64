package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

// PositionRef names the position a vote is for. Clients send either the bare
// title or an object carrying it; both normalize to the trimmed title.
type PositionRef struct {
	title string
}

func NewPositionRef(title string) PositionRef {
	return PositionRef{title: strings.TrimSpace(title)}
}

func (p PositionRef) Title() string { return p.title }

func (p PositionRef) IsZero() bool { return p.title == "" }

func (p *PositionRef) UnmarshalJSON(b []byte) error {
	var title string
	if err := json.Unmarshal(b, &title); err == nil {
		*p = NewPositionRef(title)
		return nil
	}
	var obj struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return dErrors.New(dErrors.CodeValidation, "position must be a title or an object with a title")
	}
	*p = NewPositionRef(obj.Title)
	return nil
}

func (p PositionRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.title)
}

// Vote is a single ballot for one position. Votes are immutable once stored.
//
// VoterID and ClientHash are write-only as far as clients are concerned: no
// response type carries them.
type Vote struct {
	ID          id.VoteID
	ElectionID  id.ElectionID
	Position    PositionRef
	CandidateID id.UserID
	VoterID     id.UserID
	ClientHash  string
	CreatedAt   time.Time
}

// Fingerprint hashes the client address and user agent so repeated ballots
// from one device can be spotted without storing either value.
func Fingerprint(clientIP, userAgent string) string {
	sum := sha256.Sum256([]byte(clientIP + "-" + userAgent))
	return hex.EncodeToString(sum[:])
}
