package voyagebed

import (
	"errors"
	"testing"
)

func TestParsePlaceType(t *testing.T) {
	tests := []struct {
		input   string
		want    PlaceType
		wantErr bool
	}{
		{"Port", PlaceTypePort, false},
		{"SpecificRegion", PlaceTypeSpecificRegion, false},
		{"BroadRegion", PlaceTypeBroadRegion, false},
		{"port", "", true},
		{"Region", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlaceType(tt.input)
			if tt.wantErr {
				var ipt *InvalidPlaceTypeError
				if !errors.As(err, &ipt) {
					t.Fatalf("ParsePlaceType(%q) err = %v, want *InvalidPlaceTypeError", tt.input, err)
				}
				if ipt.Value != tt.input {
					t.Errorf("InvalidPlaceTypeError.Value = %q, want %q", ipt.Value, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePlaceType(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePlaceType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlaceTypeLevel(t *testing.T) {
	tests := []struct {
		pt   PlaceType
		want Level
	}{
		{PlaceTypePort, LevelPort},
		{PlaceTypeSpecificRegion, LevelRegion},
		{PlaceTypeBroadRegion, LevelBroadRegion},
	}
	for _, tt := range tests {
		if got := tt.pt.Level(); got != tt.want {
			t.Errorf("%s.Level() = %v, want %v", tt.pt, got, tt.want)
		}
	}
}

func testPort(name string, value int) Place {
	return Place{
		Type:             PlaceTypePort,
		Value:            value,
		Name:             name,
		RegionValue:      ptr(60200),
		RegionName:       ptr("Southeast Africa and Indian Ocean islands"),
		BroadRegionValue: ptr(60000),
		BroadRegionName:  ptr("Africa"),
	}
}

func TestPlaceValidate(t *testing.T) {
	region := Place{
		Type:             PlaceTypeSpecificRegion,
		Value:            60200,
		Name:             "Southeast Africa and Indian Ocean islands",
		BroadRegionValue: ptr(60000),
		BroadRegionName:  ptr("Africa"),
	}
	broad := Place{Type: PlaceTypeBroadRegion, Value: 60000, Name: "Africa"}

	portNoRegion := testPort("Delagoa", 60206)
	portNoRegion.RegionValue = nil

	portNoBroad := testPort("Delagoa", 60206)
	portNoBroad.BroadRegionName = nil

	regionWithRegion := region
	regionWithRegion.RegionValue = ptr(1)

	regionNoBroad := region
	regionNoBroad.BroadRegionValue = nil

	broadWithParent := broad
	broadWithParent.BroadRegionName = ptr("World")

	tests := []struct {
		name      string
		place     Place
		wantErr   bool
		wantField string
	}{
		{"port", testPort("Delagoa", 60206), false, ""},
		{"region", region, false, ""},
		{"broad region", broad, false, ""},
		{"port without region", portNoRegion, true, "region"},
		{"port without broad region", portNoBroad, true, "broad_region"},
		{"region referencing a region", regionWithRegion, true, ""},
		{"region without broad region", regionNoBroad, true, "broad_region"},
		{"broad region with parent", broadWithParent, true, ""},
		{"unknown type", Place{Type: "Harbour", Name: "x"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.place.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantField == "" {
				return
			}
			var mf *MissingFieldError
			if !errors.As(err, &mf) {
				t.Fatalf("Validate() error = %v, want *MissingFieldError", err)
			}
			if mf.Field != tt.wantField {
				t.Errorf("MissingFieldError.Field = %q, want %q", mf.Field, tt.wantField)
			}
		})
	}
}

func TestPortCandidateFromPlace(t *testing.T) {
	got, err := PortCandidateFromPlace(testPort("Delagoa", 60206))
	if err != nil {
		t.Fatal(err)
	}
	want := PortCandidate{
		Value:          60206,
		Name:           "Delagoa",
		SpecificRegion: "Southeast Africa and Indian Ocean islands",
		BroadRegion:    "Africa",
	}
	if got != want {
		t.Errorf("PortCandidateFromPlace() = %+v, want %+v", got, want)
	}

	_, err = PortCandidateFromPlace(Place{Type: PlaceTypeBroadRegion, Value: 60000, Name: "Africa"})
	if !errors.Is(err, ErrNotAPort) {
		t.Errorf("broad region: err = %v, want ErrNotAPort", err)
	}

	noRegion := testPort("Delagoa", 60206)
	noRegion.RegionName = nil
	_, err = PortCandidateFromPlace(noRegion)
	var mf *MissingFieldError
	if !errors.As(err, &mf) || mf.Field != "region_name" {
		t.Errorf("missing region name: err = %v, want MissingFieldError for region_name", err)
	}
}

func TestRole(t *testing.T) {
	if Origin.Opposite() != Destination || Destination.Opposite() != Origin {
		t.Error("Opposite() does not swap origin and destination")
	}

	for _, s := range []string{"origin", "destination"} {
		r, err := ParseRole(s)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", s, err)
		}
		if r.String() != s {
			t.Errorf("ParseRole(%q).String() = %q", s, r.String())
		}
	}
	if _, err := ParseRole("sideways"); err == nil {
		t.Error("ParseRole(sideways) = nil error, want error")
	}
}

func TestPlaceString(t *testing.T) {
	got := testPort("Delagoa", 60206).String()
	if want := "Delagoa (Port 60206)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
