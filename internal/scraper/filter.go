// Package scraper pages through the DealMachine lead list and collects
// deduplicated wireless contacts.
package scraper

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

const wirelessMarker = "wireless"

// IsWireless reports whether a phone entry is a mobile number on a wireless
// carrier. Both the type code and the carrier label must agree.
func IsWireless(entry model.PhoneEntry) bool {
	if string(entry.Kind) != model.PhoneKindWireless {
		return false
	}
	// Casers hold state and are not safe to share across goroutines.
	label := cases.Fold().String(string(entry.CarrierLabel))
	return strings.Contains(label, wirelessMarker)
}

// Candidates returns one row per non-empty phone slot of a qualifying entry,
// in slot order. Non-qualifying entries yield nil.
func Candidates(record model.LeadRecord, entry model.PhoneEntry) []model.OutputRow {
	if !IsWireless(entry) {
		return nil
	}

	var rows []model.OutputRow
	for _, number := range entry.Contact.Numbers() {
		if number == "" {
			continue
		}
		rows = append(rows, model.OutputRow{
			Street:      string(record.Street),
			City:        string(record.City),
			State:       string(record.State),
			Zip:         string(record.Zip),
			PhoneNumber: number,
			GivenName:   string(entry.Contact.GivenName),
			Surname:     string(entry.Contact.Surname),
		})
	}
	return rows
}
