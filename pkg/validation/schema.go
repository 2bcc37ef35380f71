package validation

import (
	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
)

// Kind is the declared type of a field.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
)

// Field describes one optional typed field of an input record.
type Field struct {
	Name string
	Kind Kind
	// Min, when set, is the inclusive lower bound of a numeric field.
	Min *float64
	// Allowed, when non-empty, lists the only accepted integer values.
	Allowed []int64
}

// Schema is an ordered list of fields.
type Schema []Field

// Lookup returns the field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func nonNegative() *float64 {
	zero := 0.0
	return &zero
}

var binary = []int64{0, 1}

// SchemaFromConfig builds the customer-record schema from the configured
// canonical field names.
func SchemaFromConfig(m *config.ModelConfig) Schema {
	return Schema{
		{Name: m.IDVar, Kind: KindInt},
		{Name: m.GenderVar, Kind: KindString},
		{Name: m.AgeVar, Kind: KindInt, Min: nonNegative()},
		{Name: m.DrivingLicenseVar, Kind: KindInt, Allowed: binary},
		{Name: m.RegionCodeVar, Kind: KindInt},
		{Name: m.VehicleAgeVar, Kind: KindString},
		{Name: m.PreviouslyInsuredVar, Kind: KindInt, Allowed: binary},
		{Name: m.VehicleDamageVar, Kind: KindString},
		{Name: m.AnnualPremiumVar, Kind: KindFloat, Min: nonNegative()},
		{Name: m.PolicySalesChannelVar, Kind: KindFloat},
		{Name: m.VintageVar, Kind: KindInt, Min: nonNegative()},
	}
}
