package services

import (
	"fmt"
	"strconv"
	"strings"
)

// SessionMetadata is the typed form of the checkout session's metadata. The
// payment provider transports only string values, so stringification is
// isolated here; everything else works with this struct.
type SessionMetadata struct {
	UserID        string
	OrderIDs      []string
	TotalOriginal int64
	TotalFinal    int64
	HasDiscount   bool
	TotalSavings  int64
}

func (m SessionMetadata) Encode() map[string]string {
	out := map[string]string{
		"userId":        m.UserID,
		"orderIds":      strings.Join(m.OrderIDs, ","),
		"totalOriginal": strconv.FormatInt(m.TotalOriginal, 10),
		"totalFinal":    strconv.FormatInt(m.TotalFinal, 10),
		"hasDiscount":   strconv.FormatBool(m.HasDiscount),
	}
	if m.HasDiscount {
		out["totalSavings"] = strconv.FormatInt(m.TotalSavings, 10)
	}
	return out
}

// ParseSessionMetadata rebuilds the typed metadata from the provider's string
// map. Missing userId or orderIds is a hard error: the metadata is the sole
// bridge back to the orders, there is no reconstruction path.
func ParseSessionMetadata(raw map[string]string) (SessionMetadata, error) {
	if raw == nil {
		return SessionMetadata{}, ErrInvalidMetadata
	}
	userID := raw["userId"]
	orderIDs := raw["orderIds"]
	if userID == "" || orderIDs == "" {
		return SessionMetadata{}, ErrInvalidMetadata
	}

	meta := SessionMetadata{
		UserID:   userID,
		OrderIDs: strings.Split(orderIDs, ","),
	}
	var err error
	if v := raw["totalOriginal"]; v != "" {
		if meta.TotalOriginal, err = strconv.ParseInt(v, 10, 64); err != nil {
			return SessionMetadata{}, fmt.Errorf("%w: totalOriginal", ErrInvalidMetadata)
		}
	}
	if v := raw["totalFinal"]; v != "" {
		if meta.TotalFinal, err = strconv.ParseInt(v, 10, 64); err != nil {
			return SessionMetadata{}, fmt.Errorf("%w: totalFinal", ErrInvalidMetadata)
		}
	}
	if v := raw["hasDiscount"]; v != "" {
		meta.HasDiscount = v == "true"
	}
	if v := raw["totalSavings"]; v != "" {
		if meta.TotalSavings, err = strconv.ParseInt(v, 10, 64); err != nil {
			return SessionMetadata{}, fmt.Errorf("%w: totalSavings", ErrInvalidMetadata)
		}
	}
	return meta, nil
}
