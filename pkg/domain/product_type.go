package domain

import (
	"strings"

	dErrors "losflow/pkg/domain-errors"
)

// ProductType identifies which loan product an application was filed under.
// The engine does not branch on product type; it is carried for reporting and
// so queue listings can show what a row is.
type ProductType string

const (
	ProductCashPlus           ProductType = "cashplus"
	ProductAutoLoan           ProductType = "autoloan"
	ProductCreditCardClassic  ProductType = "creditcard_classic"
	ProductCreditCardPlatinum ProductType = "creditcard_platinum"
	ProductSmeAsaan           ProductType = "sme_asaan"
	ProductCommercialVehicle  ProductType = "commercial_vehicle"
	ProductAmeenDrive         ProductType = "ameendrive"
)

var validProductTypes = map[ProductType]bool{
	ProductCashPlus:           true,
	ProductAutoLoan:           true,
	ProductCreditCardClassic:  true,
	ProductCreditCardPlatinum: true,
	ProductSmeAsaan:           true,
	ProductCommercialVehicle:  true,
	ProductAmeenDrive:         true,
}

// ParseProductType constructs a ProductType from external input.
func ParseProductType(s string) (ProductType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "product type cannot be empty")
	}
	p := ProductType(strings.ToLower(s))
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown product type")
	}
	return p, nil
}

// IsValid checks if the product type is one of the supported enum values.
func (p ProductType) IsValid() bool {
	return validProductTypes[p]
}

func (p ProductType) String() string {
	return string(p)
}
