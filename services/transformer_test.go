package services

import (
	"reflect"
	"testing"

	"zigbang-scraper/config"
	"zigbang-scraper/models"
	"zigbang-scraper/utils"
)

func newTestTransformer() *Transformer {
	cfg := &config.Config{
		Country:       "south-korea",
		ZigbangWebURL: "https://www.zigbang.com",
	}
	return NewTransformer(cfg, utils.NewLogger())
}

func floatPtr(v float64) *float64 { return &v }

func TestTransformMonthlyRentListing(t *testing.T) {
	tr := newTestTransformer()
	raw := &models.RawListing{
		ItemID:    101,
		Title:     "역삼동 신축 원룸",
		SalesType: "월세",
		Deposit:   floatPtr(1000),
		Rent:      floatPtr(50),
		RoomType:  "원룸",
	}

	prop, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	if prop.TransactionType != "rent" {
		t.Errorf("TransactionType: got %q, want %q", prop.TransactionType, "rent")
	}
	// (1000 + 50*12) * 10000 — annualized, in KRW subunits
	if prop.Price != 16000000 {
		t.Errorf("Price: got %.0f, want 16000000", prop.Price)
	}
	if prop.Currency != "KRW" {
		t.Errorf("Currency: got %q, want KRW", prop.Currency)
	}
	if got := *prop.Details.Bedrooms; got != 0 {
		t.Errorf("Bedrooms: got %d, want 0", got)
	}
	if got := *prop.Details.Rooms; got != 1 {
		t.Errorf("Rooms: got %d, want 1", got)
	}
	if got := prop.CountrySpecific["monthly_rent_krw"]; got != float64(500000) {
		t.Errorf("monthly_rent_krw: got %v, want 500000", got)
	}
	if got := prop.CountrySpecific["deposit_krw"]; got != float64(10000000) {
		t.Errorf("deposit_krw: got %v, want 10000000", got)
	}
}

func TestTransformSaleListing(t *testing.T) {
	tr := newTestTransformer()
	raw := &models.RawListing{
		ItemID:    102,
		Title:     "강남 아파트 매매",
		SalesType: "매매",
		Deposit:   floatPtr(50000),
		RoomType:  "아파트",
	}

	prop, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	if prop.TransactionType != "sale" {
		t.Errorf("TransactionType: got %q, want %q", prop.TransactionType, "sale")
	}
	if prop.Price != 500000000 {
		t.Errorf("Price: got %.0f, want 500000000", prop.Price)
	}
	if _, exists := prop.CountrySpecific["monthly_rent_krw"]; exists {
		t.Error("sale listing should not carry monthly_rent_krw")
	}
}

func TestTransformJeonseListing(t *testing.T) {
	tr := newTestTransformer()
	raw := &models.RawListing{
		ItemID:    103,
		Title:     "전세 투룸",
		SalesType: "전세",
		Deposit:   floatPtr(20000),
		RoomType:  "투룸",
	}

	prop, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	if prop.TransactionType != "rent" {
		t.Errorf("TransactionType: got %q, want %q", prop.TransactionType, "rent")
	}
	if prop.Price != 200000000 {
		t.Errorf("Price: got %.0f, want 200000000", prop.Price)
	}
	if _, exists := prop.CountrySpecific["monthly_rent_krw"]; exists {
		t.Error("jeonse listing should not carry monthly_rent_krw")
	}
}

func TestTransformPriceNeverNegativeOrManwon(t *testing.T) {
	tr := newTestTransformer()

	tests := []struct {
		name      string
		salesType string
		deposit   *float64
		rent      *float64
		want      float64
	}{
		{"sale with deposit", "매매", floatPtr(30000), nil, 300000000},
		{"jeonse with deposit", "전세", floatPtr(15000), nil, 150000000},
		{"wolse with both", "월세", floatPtr(500), floatPtr(40), 9800000},
		{"wolse missing deposit", "월세", nil, floatPtr(30), 3600000},
		{"sale missing deposit", "매매", nil, nil, 0},
		{"unknown sales type", "단기임대", floatPtr(100), floatPtr(10), 2200000},
		{"absent sales type", "", nil, nil, 0},
	}

	for _, tt := range tests {
		raw := &models.RawListing{
			ItemID:    1,
			Title:     "listing",
			SalesType: tt.salesType,
			Deposit:   tt.deposit,
			Rent:      tt.rent,
		}
		prop, err := tr.Transform(raw)
		if err != nil {
			t.Fatalf("%s: Transform returned error: %v", tt.name, err)
		}
		if prop.Price < 0 {
			t.Errorf("%s: price is negative: %.0f", tt.name, prop.Price)
		}
		if prop.Price != tt.want {
			t.Errorf("%s: price = %.0f, want %.0f", tt.name, prop.Price, tt.want)
		}
	}
}

func TestTransformIdempotent(t *testing.T) {
	tr := newTestTransformer()
	raw := &models.RawListing{
		ItemID:    104,
		Title:     "오피스텔",
		SalesType: "월세",
		Deposit:   floatPtr(2000),
		Rent:      floatPtr(80),
		RoomType:  "원룸",
		Local1:    "서울특별시",
		Local2:    "강남구",
		Local3:    "역삼동",
	}

	first, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	second, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Transform is not idempotent for identical input")
	}
}

func TestExtractRoomCounts(t *testing.T) {
	tests := []struct {
		roomType     string
		wantBedrooms int
		wantRooms    int
	}{
		{"원룸", 0, 1},
		{"투룸", 1, 2},
		{"쓰리룸", 2, 3},
		{"4room", 3, 4},
		{"2room", 1, 2},
		{"1room", 0, 1},
		{"", 0, 1},
		{"복층", 0, 1},
	}

	for _, tt := range tests {
		if got := extractBedrooms(tt.roomType); got != tt.wantBedrooms {
			t.Errorf("extractBedrooms(%q) = %d, want %d", tt.roomType, got, tt.wantBedrooms)
		}
		if got := extractRooms(tt.roomType); got != tt.wantRooms {
			t.Errorf("extractRooms(%q) = %d, want %d", tt.roomType, got, tt.wantRooms)
		}
	}
}

func TestStudioAlwaysZeroBedroomsOneRoom(t *testing.T) {
	tr := newTestTransformer()
	raw := &models.RawListing{
		ItemID:    105,
		Title:     "원룸 풀옵션",
		SalesType: "전세",
		Deposit:   floatPtr(9000),
		RoomType:  "신축 원룸 분리형",
	}

	prop, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if *prop.Details.Bedrooms != 0 || *prop.Details.Rooms != 1 {
		t.Errorf("studio label: got bedrooms=%d rooms=%d, want 0/1",
			*prop.Details.Bedrooms, *prop.Details.Rooms)
	}
}

func TestNormalizePropertyType(t *testing.T) {
	tests := []struct {
		roomType    string
		serviceType string
		want        string
	}{
		{"원룸", "", "apartment"},
		{"", "오피스텔", "apartment"},
		{"아파트", "", "apartment"},
		{"빌라", "", "apartment"},
		{"타운하우스", "", "townhouse"},
		{"", "", "apartment"},
		{"상가주택", "", "apartment"}, // unmapped falls back to the dominant type
	}

	for _, tt := range tests {
		got := normalizePropertyType(tt.roomType, tt.serviceType)
		if got != tt.want {
			t.Errorf("normalizePropertyType(%q, %q) = %q, want %q",
				tt.roomType, tt.serviceType, got, tt.want)
		}
	}
}

func TestTransformRejectsMissingMandatoryFields(t *testing.T) {
	tr := newTestTransformer()

	if _, err := tr.Transform(&models.RawListing{Title: "no id"}); err == nil {
		t.Error("expected error for missing item id")
	}
	if _, err := tr.Transform(&models.RawListing{ItemID: 1, Title: "   "}); err == nil {
		t.Error("expected error for missing title")
	}
	if _, err := tr.Transform(nil); err == nil {
		t.Error("expected error for nil listing")
	}
}

func TestTransformAreaAliasCoalescing(t *testing.T) {
	tr := newTestTransformer()
	raw := &models.RawListing{
		ItemID:        106,
		Title:         "면적 별칭",
		SalesType:     "전세",
		SupplyArea:    &models.AreaSpec{M2: floatPtr(44.2)},
		ExclusiveArea: &models.AreaSpec{M2: floatPtr(29.7)},
	}

	prop, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if prop.Details.Sqm == nil || *prop.Details.Sqm != 44.2 {
		t.Errorf("Sqm: got %v, want 44.2", prop.Details.Sqm)
	}
	if got := prop.CountrySpecific["supply_area_m2"]; got != float64(44.2) {
		t.Errorf("supply_area_m2: got %v, want 44.2", got)
	}
	if got := prop.CountrySpecific["exclusive_area_m2"]; got != float64(29.7) {
		t.Errorf("exclusive_area_m2: got %v, want 29.7", got)
	}

	// The English flat field wins when both aliases are present.
	raw.SizeM2 = floatPtr(46.0)
	prop, err = tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if *prop.Details.Sqm != 46.0 {
		t.Errorf("Sqm with both aliases: got %v, want 46.0", *prop.Details.Sqm)
	}
}

func TestTransformAddressComposition(t *testing.T) {
	tr := newTestTransformer()

	raw := &models.RawListing{
		ItemID:    107,
		Title:     "주소 테스트",
		SalesType: "월세",
		Local1:    "서울특별시",
		Local2:    "강남구",
		Local3:    "역삼동",
	}

	prop, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if prop.Location.Address != "서울특별시 강남구 역삼동" {
		t.Errorf("Address: got %q", prop.Location.Address)
	}
	if prop.Location.City != "서울특별시" {
		t.Errorf("City: got %q, want 서울특별시", prop.Location.City)
	}
	if prop.Location.State != "서울특별시" {
		t.Errorf("State: got %q, want 서울특별시", prop.Location.State)
	}
	if prop.Location.Neighborhood != "역삼동" {
		t.Errorf("Neighborhood: got %q, want 역삼동", prop.Location.Neighborhood)
	}

	// Free-text address takes precedence; level-2 backfills the city.
	raw.Address = "서울 강남구 역삼동 123-45"
	raw.Local1 = ""
	prop, err = tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if prop.Location.Address != "서울 강남구 역삼동 123-45" {
		t.Errorf("Address: got %q", prop.Location.Address)
	}
	if prop.Location.City != "강남구" {
		t.Errorf("City fallback: got %q, want 강남구", prop.Location.City)
	}
}

func TestTransformManageCostAndFeatures(t *testing.T) {
	tr := newTestTransformer()
	raw := &models.RawListing{
		ItemID:      108,
		Title:       "관리비 포함",
		SalesType:   "월세",
		Deposit:     floatPtr(500),
		Rent:        floatPtr(45),
		ServiceType: "오피스텔",
		Floor:       "3",
		TotalFloors: "12",
		ManageCost:  models.ManwonAmount{Value: 7, Known: true},
		IsNew:       true,
	}

	prop, err := tr.Transform(raw)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	if got := prop.CountrySpecific["manage_cost_man_won"]; got != float64(7) {
		t.Errorf("manage_cost_man_won: got %v, want 7", got)
	}
	if got := prop.CountrySpecific["manage_cost_krw"]; got != float64(70000) {
		t.Errorf("manage_cost_krw: got %v, want 70000", got)
	}
	if len(prop.Features) != 5 {
		t.Errorf("Features: got %d entries (%v), want 5", len(prop.Features), prop.Features)
	}
}

func TestParseRegDate(t *testing.T) {
	tests := []struct {
		in     string
		expect bool // whether a non-empty RFC3339 date is expected
	}{
		{"2024-03-15T09:30:00", true},
		{"2024-03-15", true},
		{"2024-03-15 09:30:00", true},
		{"not a date", false},
		{"", false},
	}

	for _, tt := range tests {
		got := parseRegDate(tt.in)
		if tt.expect && got == "" {
			t.Errorf("parseRegDate(%q) = empty, want RFC3339 value", tt.in)
		}
		if !tt.expect && got != "" {
			t.Errorf("parseRegDate(%q) = %q, want empty", tt.in, got)
		}
	}
}
