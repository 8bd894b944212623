package analytics

import (
	"sort"
	"strings"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// countryAliases — варианты написания страны → каноническое имя.
// Ключи в нижнем регистре.
var countryAliases = map[string]string{
	"norway":         "Norway",
	"norge":          "Norway",
	"no":             "Norway",
	"sweden":         "Sweden",
	"sverige":        "Sweden",
	"se":             "Sweden",
	"denmark":        "Denmark",
	"danmark":        "Denmark",
	"dk":             "Denmark",
	"finland":        "Finland",
	"suomi":          "Finland",
	"fi":             "Finland",
	"germany":        "Germany",
	"deutschland":    "Germany",
	"de":             "Germany",
	"united states":  "United States",
	"usa":            "United States",
	"us":             "United States",
	"united kingdom": "United Kingdom",
	"uk":             "United Kingdom",
	"gb":             "United Kingdom",
	"great britain":  "United Kingdom",
}

// defaultCountries — набор стран для пустого окна.
var defaultCountries = []string{"Norway", "Sweden", "Denmark", "Other"}

// NormalizeCountry приводит название страны к каноническому виду.
// Пустое значение — model.UnknownLocation, неизвестные названия
// возвращаются без изменений (без пробелов по краям).
func NormalizeCountry(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return model.UnknownLocation
	}
	if canon, ok := countryAliases[strings.ToLower(v)]; ok {
		return canon
	}
	if strings.EqualFold(v, model.UnknownLocation) {
		return model.UnknownLocation
	}
	return v
}

// DefaultGeography — распределение для окна без событий.
func DefaultGeography() Breakdown {
	items := make([]Share, 0, len(defaultCountries))
	for _, c := range defaultCountries {
		items = append(items, Share{Label: c})
	}
	return Breakdown{Provenance: Measured, Items: items}
}

// AggregateGeography группирует события по нормализованной стране.
// Результат отсортирован по убыванию количества, затем по имени.
func AggregateGeography(events []model.ScanEvent) Breakdown {
	if len(events) == 0 {
		return DefaultGeography()
	}

	counts := make(map[string]int)
	for i := range events {
		counts[NormalizeCountry(events[i].Country)]++
	}

	items := make([]Share, 0, len(counts))
	for country, n := range counts {
		items = append(items, Share{
			Label:      country,
			Count:      n,
			Percentage: percent(n, len(events)),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Label < items[j].Label
	})
	return Breakdown{Provenance: Measured, Items: items}
}
