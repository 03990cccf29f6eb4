package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"zigbang-scraper/config"
	"zigbang-scraper/models"
	"zigbang-scraper/utils"
)

// manwonInKRW converts the portal's reporting unit (만원) to KRW.
const manwonInKRW = 10000

// Korean sales-type markers. 매매 is an outright sale; 전세 is a large
// refundable deposit in lieu of rent; 월세 is deposit plus monthly rent.
const (
	salesTypeSale   = "매매"
	salesTypeJeonse = "전세"
	salesTypeWolse  = "월세"
)

// roomCountRegexp captures numeric labels like "3room" or "4 room".
var roomCountRegexp = regexp.MustCompile(`(\d+)\s*room`)

// propertyTypePatterns maps portal room/service labels to canonical
// property types. Checked in order; first match wins. Officetels, villas
// and onerooms all market as apartment-style units in Korea.
var propertyTypePatterns = []struct {
	keywords  []string
	canonical string
}{
	{[]string{"오피스텔", "officetel"}, "apartment"},
	{[]string{"아파트", "apart"}, "apartment"},
	{[]string{"빌라", "villa"}, "apartment"},
	{[]string{"원룸", "oneroom"}, "apartment"},
	{[]string{"투룸", "tworoom"}, "apartment"},
	{[]string{"타운하우스", "townhouse"}, "townhouse"},
}

// regDateLayouts are the timestamp shapes the portal has been seen to emit.
var regDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Transformer normalizes raw portal listings into the canonical property
// schema. Transform is deterministic and side-effect-free: identical input
// always yields identical output.
type Transformer struct {
	country string
	webURL  string
	logger  *utils.Logger
}

// NewTransformer creates a Transformer bound to the configured country code
// and portal web URL.
func NewTransformer(cfg *config.Config, logger *utils.Logger) *Transformer {
	return &Transformer{
		country: cfg.Country,
		webURL:  cfg.ZigbangWebURL,
		logger:  logger,
	}
}

// Transform maps one raw listing to a canonical property. It never fails on
// missing optional fields; only a structurally absent identifier or title
// is an error.
func (t *Transformer) Transform(raw *models.RawListing) (*models.CanonicalProperty, error) {
	if raw == nil {
		return nil, errors.New("transform: nil listing")
	}
	if raw.ItemID == 0 {
		return nil, errors.New("transform: listing missing item id")
	}
	if strings.TrimSpace(raw.Title) == "" {
		return nil, fmt.Errorf("transform: listing %d missing title", raw.ItemID)
	}

	price, monthlyRent := computePrice(raw)

	supplyM2 := coalesceArea(raw.SizeM2, raw.SupplyArea)
	exclusiveM2 := coalesceArea(raw.ExclusiveM2, raw.ExclusiveArea)

	prop := &models.CanonicalProperty{
		Title:           raw.Title,
		Price:           price,
		Currency:        "KRW",
		PropertyType:    normalizePropertyType(raw.RoomType, raw.ServiceType),
		TransactionType: transactionType(raw.SalesType),
		Location: models.CanonicalLocation{
			Address:      composeAddress(raw),
			City:         firstNonEmpty(raw.Local1, raw.Local2),
			State:        raw.Local1,
			Neighborhood: raw.Local3,
			Country:      t.country,
		},
		Details: models.CanonicalDetails{
			Bedrooms:  intPtr(extractBedrooms(raw.RoomType)),
			Bathrooms: intPtr(1), // the portal almost never reports bathrooms
			Sqm:       supplyM2,
			Rooms:     intPtr(extractRooms(raw.RoomType)),
		},
		Features: extractFeatures(raw),
		Amenities: map[string]bool{
			"has_parking": false,
			"has_balcony": false,
			"has_garden":  false,
			"has_pool":    false,
		},
		CountrySpecific: countrySpecific(raw, monthlyRent, supplyM2, exclusiveM2),
		Description:     raw.Title, // the portal uses the title as the description
		URL:             fmt.Sprintf("%s/home/items/%d", t.webURL, raw.ItemID),
		Status:          "active",
		ListingDate:     parseRegDate(raw.RegDate),
	}

	if raw.Lat != nil && raw.Lng != nil {
		prop.Location.Coordinates = &models.Coordinates{Lat: *raw.Lat, Lon: *raw.Lng}
	}
	if raw.Thumbnail != "" {
		prop.Images = []string{raw.Thumbnail}
	}

	t.logger.Debug("[transform] item %d → %s/%s %.0f KRW",
		raw.ItemID, prop.TransactionType, prop.PropertyType, prop.Price)

	return prop, nil
}

// transactionType classifies the Korean sales-type tag. Only 매매 maps to
// sale; everything else, including absent, is a rental.
func transactionType(salesType string) string {
	if strings.Contains(salesType, salesTypeSale) {
		return "sale"
	}
	return "rent"
}

// computePrice converts the portal's manwon figures to a single KRW price.
// Sale and jeonse listings price at the deposit; monthly-rent listings are
// annualized (deposit + 12 months of rent) so all three regimes compare on
// one axis, with the bare monthly rent reported separately.
func computePrice(raw *models.RawListing) (price float64, monthlyRent *float64) {
	deposit := floatOrZero(raw.Deposit)
	rent := floatOrZero(raw.Rent)

	if strings.Contains(raw.SalesType, salesTypeSale) {
		return deposit * manwonInKRW, nil
	}
	if strings.Contains(raw.SalesType, salesTypeJeonse) {
		return deposit * manwonInKRW, nil
	}

	// 월세 and any unrecognized sales type.
	monthly := rent * manwonInKRW
	return (deposit + rent*12) * manwonInKRW, &monthly
}

// normalizePropertyType maps the Korean room/service label to the canonical
// closed set. The portal is overwhelmingly apartment-style stock, so no
// match defaults to apartment rather than other.
func normalizePropertyType(roomType, serviceType string) string {
	label := strings.ToLower(firstNonEmpty(roomType, serviceType))
	for _, p := range propertyTypePatterns {
		for _, kw := range p.keywords {
			if strings.Contains(label, kw) {
				return p.canonical
			}
		}
	}
	return "apartment"
}

// extractBedrooms derives a bedroom count from the Korean room-type label.
// One room of every unit is counted as the living room.
func extractBedrooms(roomType string) int {
	label := strings.ToLower(roomType)

	switch {
	case strings.Contains(label, "원룸"), strings.Contains(label, "oneroom"):
		return 0
	case strings.Contains(label, "투룸"), strings.Contains(label, "tworoom"):
		return 1
	case strings.Contains(label, "쓰리룸"), strings.Contains(label, "threeroom"):
		return 2
	}

	if m := roomCountRegexp.FindStringSubmatch(label); len(m) == 2 {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 1 {
			return n - 1
		}
		return 0
	}

	return 0
}

// extractRooms derives the total room count from the Korean room-type label.
func extractRooms(roomType string) int {
	label := strings.ToLower(roomType)

	switch {
	case strings.Contains(label, "원룸"), strings.Contains(label, "oneroom"):
		return 1
	case strings.Contains(label, "투룸"), strings.Contains(label, "tworoom"):
		return 2
	case strings.Contains(label, "쓰리룸"), strings.Contains(label, "threeroom"):
		return 3
	}

	if m := roomCountRegexp.FindStringSubmatch(label); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}

	return 1
}

// composeAddress prefers the portal's free-text address and falls back to
// joining the three-level administrative decomposition.
func composeAddress(raw *models.RawListing) string {
	if raw.Address != "" {
		return raw.Address
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{raw.Local1, raw.Local2, raw.Local3} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// extractFeatures builds the free-text feature list from the portal fields
// that have no structured canonical slot.
func extractFeatures(raw *models.RawListing) []string {
	var features []string

	if raw.ServiceType != "" {
		features = append(features, "Type: "+raw.ServiceType)
	}
	if raw.Floor != "" {
		features = append(features, "Floor: "+raw.Floor)
	}
	if raw.TotalFloors != "" {
		features = append(features, "Total Floors: "+raw.TotalFloors)
	}
	if raw.ManageCost.Known {
		features = append(features, fmt.Sprintf("Management Fee: %g만원", raw.ManageCost.Value))
	}
	if raw.IsNew {
		features = append(features, "New Listing")
	}

	return features
}

// countrySpecific preserves every regime-specific raw quantity, in both the
// native manwon unit and converted KRW, so downstream consumers never need
// portal-specific unit knowledge.
func countrySpecific(raw *models.RawListing, monthlyRent, supplyM2, exclusiveM2 *float64) map[string]interface{} {
	cs := map[string]interface{}{
		"sales_type":   raw.SalesType,
		"room_type":    raw.RoomType,
		"service_type": raw.ServiceType,
		"floor":        raw.Floor,
		"total_floors": raw.TotalFloors,
		"local1":       raw.Local1,
		"local2":       raw.Local2,
		"local3":       raw.Local3,
		"is_new":       raw.IsNew,
		"reg_date":     raw.RegDate,
	}

	if raw.Deposit != nil {
		cs["deposit_man_won"] = *raw.Deposit
		cs["deposit_krw"] = *raw.Deposit * manwonInKRW
	}
	if raw.Rent != nil {
		cs["rent_man_won"] = *raw.Rent
		cs["rent_krw"] = *raw.Rent * manwonInKRW
	}
	if monthlyRent != nil {
		cs["monthly_rent_krw"] = *monthlyRent
	}
	if raw.ManageCost.Known {
		cs["manage_cost_man_won"] = raw.ManageCost.Value
		cs["manage_cost_krw"] = raw.ManageCost.Value * manwonInKRW
	}
	if supplyM2 != nil {
		cs["supply_area_m2"] = *supplyM2
	}
	if exclusiveM2 != nil {
		cs["exclusive_area_m2"] = *exclusiveM2
	}

	return cs
}

// coalesceArea resolves the portal's English flat field against the Korean
// nested area object.
func coalesceArea(flat *float64, nested *models.AreaSpec) *float64 {
	if flat != nil {
		return flat
	}
	if nested != nil && nested.M2 != nil {
		return nested.M2
	}
	return nil
}

// parseRegDate returns the registration date in RFC 3339, or empty when the
// portal's value does not parse.
func parseRegDate(regDate string) string {
	regDate = strings.TrimSpace(regDate)
	if regDate == "" {
		return ""
	}
	for _, layout := range regDateLayouts {
		if ts, err := time.Parse(layout, regDate); err == nil {
			return ts.Format(time.RFC3339)
		}
	}
	return ""
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intPtr(v int) *int { return &v }
