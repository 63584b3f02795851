// Package tenant identifies the account kinds that own consignment number quota.
package tenant

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Type is a closed set of account kinds that can hold number ranges.
type Type string

const (
	TypeCorporate  Type = "corporate"
	TypeOfficeUser Type = "office_user"
	TypeCourier    Type = "courier"
	TypeMedicine   Type = "medicine"
)

var ErrInvalidType = errors.New("invalid_tenant_type")

// ParseType normalizes and validates a tenant type string.
func ParseType(value string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(value))) {
	case TypeCorporate:
		return TypeCorporate, nil
	case TypeOfficeUser:
		return TypeOfficeUser, nil
	case TypeCourier:
		return TypeCourier, nil
	case TypeMedicine:
		return TypeMedicine, nil
	default:
		return "", ErrInvalidType
	}
}

// Ref identifies a single quota-owning account.
type Ref struct {
	Type Type         `json:"tenant_type"`
	ID   snowflake.ID `json:"tenant_id"`
}

// Valid reports whether both the type and the entity id are populated.
func (r Ref) Valid() bool {
	_, err := ParseType(string(r.Type))
	return err == nil && r.ID != 0
}
