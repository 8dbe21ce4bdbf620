package entitlement

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Limit is a quota value. Negative values mean unbounded.
type Limit int64

const Unlimited Limit = -1

const unlimitedText = "unlimited"

func (l Limit) IsUnlimited() bool {
	return l < 0
}

// AtLeast orders limits with Unlimited above every finite value.
func (l Limit) AtLeast(other Limit) bool {
	switch {
	case l.IsUnlimited():
		return true
	case other.IsUnlimited():
		return false
	default:
		return l >= other
	}
}

// Exceeds is the strict form of AtLeast.
func (l Limit) Exceeds(other Limit) bool {
	return l.AtLeast(other) && !other.AtLeast(l)
}

// Remaining never goes below zero, even when usage overshot the limit.
func (l Limit) Remaining(used int64) Limit {
	if l.IsUnlimited() {
		return Unlimited
	}
	remaining := int64(l) - used
	if remaining < 0 {
		return 0
	}
	return Limit(remaining)
}

// Allows compares against the headroom so a huge amount cannot wrap the sum.
func (l Limit) Allows(used, amount int64) bool {
	if l.IsUnlimited() {
		return true
	}
	return amount <= int64(l)-used
}

func (l Limit) String() string {
	if l.IsUnlimited() {
		return unlimitedText
	}
	return strconv.FormatInt(int64(l), 10)
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnlimited() {
		return []byte(`"` + unlimitedText + `"`), nil
	}
	return []byte(strconv.FormatInt(int64(l), 10)), nil
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		if text != unlimitedText {
			return errors.New("limit must be a number or \"unlimited\"")
		}
		*l = Unlimited
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n < 0 {
		*l = Unlimited
		return nil
	}
	*l = Limit(n)
	return nil
}
