package types

import (
	"testing"
)

func TestDeliveryAddressRoundTripThroughDriverValue(t *testing.T) {
	landmark := "near temple"
	addr := DeliveryAddress{
		Address:     "12 MG Road",
		Landmark:    &landmark,
		Coordinates: &Coordinates{Latitude: 12.97, Longitude: 77.59},
	}

	value, err := addr.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var decoded DeliveryAddress
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if decoded.Address != addr.Address || decoded.Landmark == nil || *decoded.Landmark != landmark {
		t.Fatalf("unexpected decoded address %+v", decoded)
	}
	if decoded.Coordinates == nil || decoded.Coordinates.Latitude != 12.97 {
		t.Fatalf("coordinates lost: %+v", decoded.Coordinates)
	}
}

func TestDeliveryAddressRejectsBlank(t *testing.T) {
	if _, err := (DeliveryAddress{Address: "  "}).Value(); err == nil {
		t.Fatal("expected blank address to fail")
	}
}

func TestDeliveryAddressScanRejectsUnknownType(t *testing.T) {
	var addr DeliveryAddress
	if err := addr.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestCoordinatesValid(t *testing.T) {
	if !(Coordinates{Latitude: 19.07, Longitude: 72.87}).Valid() {
		t.Fatal("expected valid coordinates")
	}
	if (Coordinates{Latitude: 91}).Valid() {
		t.Fatal("expected latitude out of range")
	}
}

func TestDeliveryPersonScanNullResets(t *testing.T) {
	person := DeliveryPerson{Name: "Ravi", Phone: "9876543210"}
	if err := person.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if person != (DeliveryPerson{}) {
		t.Fatalf("expected zero value, got %+v", person)
	}

	if err := person.Scan(`{"name":"Ravi","phone":"9876543210"}`); err != nil {
		t.Fatalf("Scan(string): %v", err)
	}
	if person.Name != "Ravi" || person.CurrentLocation != nil {
		t.Fatalf("unexpected person %+v", person)
	}

	if err := person.Scan([]byte(`{"name":`)); err == nil {
		t.Fatal("expected malformed payload to fail")
	}
	if person.Name != "Ravi" {
		t.Fatal("malformed payload should leave the value untouched")
	}
}
