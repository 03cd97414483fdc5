package enums

import "fmt"

// DeliveryType describes how a book order is fulfilled. Only physical
// deliveries carry a transport fee.
type DeliveryType string

const (
	DeliveryTypePhysical DeliveryType = "physical"
	DeliveryTypePDF      DeliveryType = "pdf"
)

var validDeliveryTypes = []DeliveryType{
	DeliveryTypePhysical,
	DeliveryTypePDF,
}

func (d DeliveryType) IsValid() bool {
	for _, candidate := range validDeliveryTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryType converts the raw string to DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	for _, candidate := range validDeliveryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery type %q", value)
}
