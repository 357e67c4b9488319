package payment

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadReference is returned when a webhook description matches neither
// supported reference form. The webhook fails closed on it rather than
// guessing a user.
var ErrBadReference = errors.New("unrecognized payment reference")

// Reference is the parsed form of the free-text description a bank
// transfer carries. Two encodings are accepted: a bare user id, or the
// structured USER_<id>_SPOT_<id>_LOT_<id> token the frontend embeds in
// the QR payload. SpotID and LotID are zero for the bare form.
type Reference struct {
	UserID uint64
	SpotID uint64
	LotID  uint64
}

// Structured reports whether the reference pinpoints a spot and lot.
func (r Reference) Structured() bool { return r.SpotID != 0 && r.LotID != 0 }

var (
	bareRef       = regexp.MustCompile(`^\d+$`)
	structuredRef = regexp.MustCompile(`USER_(\d+)_SPOT_(\d+)_LOT_(\d+)`)
)

// ParseReference recovers a Reference from a transfer description.
// Banks routinely prepend or append their own text, so the structured
// token is matched anywhere in the string; the bare form must be the
// whole (trimmed) description to avoid mistaking arbitrary digits for a
// user id.
func ParseReference(description string) (Reference, error) {
	description = strings.TrimSpace(description)
	if m := structuredRef.FindStringSubmatch(description); m != nil {
		uid, err1 := strconv.ParseUint(m[1], 10, 64)
		sid, err2 := strconv.ParseUint(m[2], 10, 64)
		lid, err3 := strconv.ParseUint(m[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return Reference{}, ErrBadReference
		}
		return Reference{UserID: uid, SpotID: sid, LotID: lid}, nil
	}
	if bareRef.MatchString(description) {
		uid, err := strconv.ParseUint(description, 10, 64)
		if err != nil {
			return Reference{}, ErrBadReference
		}
		return Reference{UserID: uid}, nil
	}
	return Reference{}, ErrBadReference
}

// BuildReference renders the structured token embedded in deposit QR
// payloads.
func BuildReference(userID, spotID, lotID uint64) string {
	return "USER_" + strconv.FormatUint(userID, 10) +
		"_SPOT_" + strconv.FormatUint(spotID, 10) +
		"_LOT_" + strconv.FormatUint(lotID, 10)
}
