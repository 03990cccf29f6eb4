package services

import (
	"fmt"
	"sort"
	"strings"

	"zigbang-scraper/models"
	"zigbang-scraper/utils"
)

// ReportService aggregates the normalized properties of a full run into a
// summary printed at the end of the process.
type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(props []*models.CanonicalProperty) *models.RunReport {
	report := &models.RunReport{
		ByTransactionType: make(map[string]int),
		ByPropertyType:    make(map[string]int),
		ByRegion:          make(map[string]int),
	}

	if len(props) == 0 {
		return report
	}

	report.TotalProperties = len(props)

	var priced []*models.CanonicalProperty
	for _, p := range props {
		report.ByTransactionType[p.TransactionType]++
		report.ByPropertyType[p.PropertyType]++
		if region := p.Location.Neighborhood; region != "" {
			report.ByRegion[region]++
		} else if p.Location.City != "" {
			report.ByRegion[p.Location.City]++
		}
		if p.Price > 0 {
			priced = append(priced, p)
		}
	}

	if len(priced) > 0 {
		report.MinPriceKRW = priced[0].Price
		report.MaxPriceKRW = priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, p := range priced {
			total += p.Price
			if p.Price < report.MinPriceKRW {
				report.MinPriceKRW = p.Price
			}
			if p.Price > report.MaxPriceKRW {
				report.MaxPriceKRW = p.Price
				report.MostExpensive = p
			}
		}
		report.AveragePriceKRW = round2(total / float64(len(priced)))
	}

	return report
}

func (s *ReportService) Print(r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  ZIGBANG SCRAPE SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Properties normalized : \033[1m%d\033[0m\n", r.TotalProperties)
	for _, tt := range sortedKeys(r.ByTransactionType) {
		fmt.Printf("  %-21s : \033[1m%d\033[0m\n", tt, r.ByTransactionType[tt])
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Price Statistics (KRW)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AveragePriceKRW > 0 {
		fmt.Printf("  Average price : \033[1;32m₩%.0f\033[0m\n", r.AveragePriceKRW)
		fmt.Printf("  Minimum price : \033[1;32m₩%.0f\033[0m\n", r.MinPriceKRW)
		fmt.Printf("  Maximum price : \033[1;32m₩%.0f\033[0m\n", r.MaxPriceKRW)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Printf("  Location : %s %s\n", r.MostExpensive.Location.City, r.MostExpensive.Location.Neighborhood)
		fmt.Printf("  Price    : \033[1;31m₩%.0f\033[0m (%s)\n", r.MostExpensive.Price, r.MostExpensive.TransactionType)
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  Listings by Neighborhood\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByRegion) == 0 {
		fmt.Printf("  No location data\n")
	} else {
		type regionCount struct {
			region string
			count  int
		}
		var regions []regionCount
		for region, cnt := range r.ByRegion {
			regions = append(regions, regionCount{region, cnt})
		}
		sort.Slice(regions, func(i, j int) bool {
			return regions[i].count > regions[j].count
		})
		if len(regions) > 15 {
			regions = regions[:15]
		}
		for _, rc := range regions {
			bar := strings.Repeat("█", scaleBar(rc.count))
			fmt.Printf("  %-30s %s (%d)\n", truncate(rc.region, 28), bar, rc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// scaleBar keeps the histogram readable for large runs.
func scaleBar(count int) int {
	if count > 40 {
		return 40
	}
	return count
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
