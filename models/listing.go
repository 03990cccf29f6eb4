package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// AreaSpec is the portal's nested area object, reported in square meters
// and pyeong. Either measurement may be absent.
type AreaSpec struct {
	M2     *float64 `json:"m2"`
	Pyeong *float64 `json:"p"`
}

// ManwonAmount handles the portal's maintenance-cost field, which arrives
// as either a JSON number or a numeric string. Unparseable values (e.g.
// "없음") are treated as absent rather than failing the whole record.
type ManwonAmount struct {
	Value float64
	Known bool
}

// UnmarshalJSON accepts a number, a quoted number, null, or junk text.
func (m *ManwonAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	m.Value = v
	m.Known = true
	return nil
}

// MarshalJSON round-trips the amount as a number, or null when unknown.
func (m ManwonAmount) MarshalJSON() ([]byte, error) {
	if !m.Known {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// RawListing is one listing exactly as the Zigbang batch-detail endpoint
// returns it. Every field except the identifier and title is optional;
// absence means "unknown", never zero. Monetary amounts are in manwon
// (10,000 KRW). The portal mixes English and Korean field names; the
// transformer coalesces the aliases explicitly.
type RawListing struct {
	ItemID    int64    `json:"item_id"`
	Title     string   `json:"title"`
	SalesType string   `json:"sales_type"` // 매매 | 전세 | 월세
	Deposit   *float64 `json:"deposit"`
	Rent      *float64 `json:"rent"`

	SizeM2        *float64  `json:"size_m2"`
	ExclusiveM2   *float64  `json:"exclusive_m2"`
	SupplyArea    *AreaSpec `json:"공급면적"`
	ExclusiveArea *AreaSpec `json:"전용면적"`

	Floor       string `json:"floor"`
	TotalFloors string `json:"total_floors"`

	RoomType    string `json:"room_type"`    // 원룸, 투룸, ...
	ServiceType string `json:"service_type"` // 원룸, 오피스텔, 빌라, ...

	Address string `json:"address"`
	Local1  string `json:"local1"` // province/city, e.g. 서울특별시
	Local2  string `json:"local2"` // district, e.g. 강남구
	Local3  string `json:"local3"` // neighborhood, e.g. 역삼동

	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`

	Thumbnail  string       `json:"images_thumbnail"`
	ManageCost ManwonAmount `json:"manage_cost"`
	IsNew      bool         `json:"is_new"`
	RegDate    string       `json:"reg_date"`

	// Raw carries the verbatim item JSON as received from the portal.
	// It is forwarded untouched in the ingestion envelope for audit/replay.
	Raw json.RawMessage `json:"-"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CanonicalLocation is the portal-agnostic location block.
type CanonicalLocation struct {
	Address      string       `json:"address,omitempty"`
	City         string       `json:"city,omitempty"`
	State        string       `json:"state,omitempty"`
	Neighborhood string       `json:"neighborhood,omitempty"`
	PostalCode   string       `json:"postal_code,omitempty"`
	Country      string       `json:"country"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

// CanonicalDetails holds optional per-property facts. Pointers distinguish
// "unknown" from zero.
type CanonicalDetails struct {
	Bedrooms  *int     `json:"bedrooms,omitempty"`
	Bathrooms *int     `json:"bathrooms,omitempty"`
	Sqm       *float64 `json:"sqm,omitempty"`
	Sqft      *float64 `json:"sqft,omitempty"`
	Rooms     *int     `json:"rooms,omitempty"`
	YearBuilt *int     `json:"year_built,omitempty"`
}

// CanonicalProperty is the normalized record consumed by the Landomo core
// ingestion service. Price is always in base currency subunits (KRW), never
// in the portal's manwon reporting unit.
type CanonicalProperty struct {
	Title           string  `json:"title"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	PropertyType    string  `json:"property_type"`
	TransactionType string  `json:"transaction_type"`

	Location CanonicalLocation `json:"location"`
	Details  CanonicalDetails  `json:"details"`

	Features  []string        `json:"features,omitempty"`
	Amenities map[string]bool `json:"amenities,omitempty"`

	// CountrySpecific carries portal fields with no portal-agnostic
	// equivalent; manwon quantities appear both native and converted to KRW.
	CountrySpecific map[string]interface{} `json:"country_specific,omitempty"`

	Images      []string `json:"images,omitempty"`
	Description string   `json:"description,omitempty"`

	URL         string `json:"url,omitempty"`
	Status      string `json:"status,omitempty"` // active | inactive | sold | rented
	ListingDate string `json:"listing_date,omitempty"`
	UpdatedDate string `json:"updated_date,omitempty"`
}

// IngestionEnvelope is one ingestion call's request body: the canonical
// record plus the original portal payload verbatim.
type IngestionEnvelope struct {
	Portal   string             `json:"portal"`
	PortalID string             `json:"portal_id"`
	Country  string             `json:"country"`
	Data     *CanonicalProperty `json:"data"`
	RawData  json.RawMessage    `json:"raw_data,omitempty"`
}

// RunReport holds the aggregate statistics printed after a full run.
type RunReport struct {
	TotalProperties   int
	ByTransactionType map[string]int
	ByPropertyType    map[string]int
	ByRegion          map[string]int
	AveragePriceKRW   float64
	MinPriceKRW       float64
	MaxPriceKRW       float64
	MostExpensive     *CanonicalProperty
}

// RunRecord is one (city, property-type) combination's outcome, persisted
// to the optional scraper database.
type RunRecord struct {
	RunID        string
	Portal       string
	City         string
	PropertyType string
	Discovered   int
	Fetched      int
	Ingested     int
	Failed       int
	StartedAt    time.Time
	FinishedAt   time.Time
}
