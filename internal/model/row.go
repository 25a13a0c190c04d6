package model

// OutputHeader is the header row of the wireless export.
var OutputHeader = []string{"Street", "City", "State", "Zip", "PhoneNumber", "FirstName", "LastName"}

// OutputRow is one exported wireless contact. PhoneNumber is the dedup key.
type OutputRow struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	PhoneNumber string `json:"phone_number"`
	GivenName   string `json:"given_name"`
	Surname     string `json:"surname"`
}

// Fields returns the row in OutputHeader column order.
func (r OutputRow) Fields() []string {
	return []string{r.Street, r.City, r.State, r.Zip, r.PhoneNumber, r.GivenName, r.Surname}
}
