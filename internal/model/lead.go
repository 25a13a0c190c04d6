package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PhoneKindWireless is the DealMachine phone type code for mobile numbers.
const PhoneKindWireless = "W"

// Text is a string field that tolerates loosely typed JSON. null, false,
// objects and arrays decode to ""; numbers and true keep their literal text.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[', 'n', 'f':
		*t = ""
	default:
		*t = Text(data)
	}
	return nil
}

// isObject reports whether raw JSON holds an object.
func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

// LeadRecord is a single property/owner lead returned by the DealMachine
// lead listing. Address fields may be empty; PhoneEntries may be nil.
type LeadRecord struct {
	Street       Text         `json:"property_address"`
	City         Text         `json:"property_address_city"`
	State        Text         `json:"property_address_state"`
	Zip          Text         `json:"property_address_zip"`
	PhoneEntries []PhoneEntry `json:"phone_numbers"`
}

// UnmarshalJSON implements json.Unmarshaler. A phone_numbers value that is
// not an array decodes to nil, and elements that are not objects are
// dropped.
func (r *LeadRecord) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		*r = LeadRecord{}
		return nil
	}
	var raw struct {
		Street       Text            `json:"property_address"`
		City         Text            `json:"property_address_city"`
		State        Text            `json:"property_address_state"`
		Zip          Text            `json:"property_address_zip"`
		PhoneEntries json.RawMessage `json:"phone_numbers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = LeadRecord{Street: raw.Street, City: raw.City, State: raw.State, Zip: raw.Zip}

	list := bytes.TrimSpace(raw.PhoneEntries)
	if len(list) == 0 || list[0] != '[' {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(list, &elems); err != nil {
		return err
	}
	for _, elem := range elems {
		if !isObject(elem) {
			continue
		}
		var entry PhoneEntry
		if err := json.Unmarshal(elem, &entry); err != nil {
			return err
		}
		r.PhoneEntries = append(r.PhoneEntries, entry)
	}
	return nil
}

// PhoneEntry is one phone classification attached to a lead.
type PhoneEntry struct {
	Kind         Text    `json:"type"`
	CarrierLabel Text    `json:"carrier"`
	Contact      Contact `json:"contact"`
}

// UnmarshalJSON implements json.Unmarshaler. Anything but an object decodes
// to the zero entry.
func (e *PhoneEntry) UnmarshalJSON(data []byte) error {
	type plain PhoneEntry
	var p plain
	if isObject(data) {
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
	}
	*e = PhoneEntry(p)
	return nil
}

// Contact holds up to three numbers and the owner name for a phone entry.
type Contact struct {
	Phone1    Text `json:"phone_1"`
	Phone2    Text `json:"phone_2"`
	Phone3    Text `json:"phone_3"`
	GivenName Text `json:"given_name"`
	Surname   Text `json:"surname"`
}

// UnmarshalJSON implements json.Unmarshaler. Anything but an object decodes
// to the zero contact.
func (c *Contact) UnmarshalJSON(data []byte) error {
	type plain Contact
	var p plain
	if isObject(data) {
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
	}
	*c = Contact(p)
	return nil
}

// Numbers returns the contact's phone slots in slot order (primary,
// secondary, tertiary). Empty slots, including a numeric zero, are
// returned as "".
func (c Contact) Numbers() [3]string {
	return [3]string{phoneSlot(c.Phone1), phoneSlot(c.Phone2), phoneSlot(c.Phone3)}
}

func phoneSlot(t Text) string {
	s := string(t)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == 0 {
		return ""
	}
	return s
}

// LeadPage is the page envelope returned by the lead listing endpoint.
type LeadPage struct {
	Results LeadResults `json:"results"`
}

// LeadResults wraps the property list.
type LeadResults struct {
	Properties []LeadRecord `json:"properties"`
}

// Records returns the page's lead records. A nil page has none.
func (p *LeadPage) Records() []LeadRecord {
	if p == nil {
		return nil
	}
	return p.Results.Properties
}

// PageCursor identifies one page of the lead listing.
type PageCursor struct {
	PageIndex int `json:"page"`
	PageSize  int `json:"pageSize"`
}

// DefaultPageSize is the page size used when the caller does not supply one.
const DefaultPageSize = 100

// FirstPage returns the cursor for page 1 at the given size. A non-positive
// size falls back to DefaultPageSize.
func FirstPage(pageSize int) PageCursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return PageCursor{PageIndex: 1, PageSize: pageSize}
}

// Next returns the cursor for the following page.
func (c PageCursor) Next() PageCursor {
	return PageCursor{PageIndex: c.PageIndex + 1, PageSize: c.PageSize}
}

// Offset is the zero-based record offset of the page.
func (c PageCursor) Offset() int {
	return (c.PageIndex - 1) * c.PageSize
}
