package importitems

type ModelType string

const (
	ModelTypeCustomers ModelType = "customers"
	ModelTypeLoans     ModelType = "loans"
)

func (m ModelType) String() string { return string(m) }

// ParseModelType accepts the sheet kinds that can be uploaded. Loans refer
// to customers by id, so a customers sheet has to be imported first.
func ParseModelType(s string) (ModelType, bool) {
	switch t := ModelType(s); t {
	case ModelTypeCustomers, ModelTypeLoans:
		return t, true
	}
	return "", false
}
