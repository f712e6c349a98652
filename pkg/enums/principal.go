package enums

import "fmt"

// PrincipalType identifies which kind of account a token was minted for.
type PrincipalType string

const (
	PrincipalTypeUser       PrincipalType = "user"
	PrincipalTypeShopkeeper PrincipalType = "shopkeeper"
)

func (p PrincipalType) String() string {
	return string(p)
}

func (p PrincipalType) IsValid() bool {
	return p == PrincipalTypeUser || p == PrincipalTypeShopkeeper
}

func ParsePrincipalType(value string) (PrincipalType, error) {
	candidate := PrincipalType(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid principal type %q", value)
	}
	return candidate, nil
}

type AddressType string

const (
	AddressTypeHome   AddressType = "home"
	AddressTypeOffice AddressType = "office"
	AddressTypeOther  AddressType = "other"
)

func (a AddressType) IsValid() bool {
	switch a {
	case AddressTypeHome, AddressTypeOffice, AddressTypeOther:
		return true
	}
	return false
}
