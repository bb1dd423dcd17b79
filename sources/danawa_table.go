package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"carpulse/models"
)

// ParseSalesDocument normalizes a fetched Danawa monthly ranking page into
// raw sales records. The connector owning the HTTP side hands the parsed
// document in; rows without a unit count are dropped.
func ParseSalesDocument(doc *goquery.Document, yearMonth string) []models.RawSalesRecord {
	var records []models.RawSalesRecord

	doc.Find("table.tbl_list tbody tr").Each(func(i int, row *goquery.Selection) {
		nameCell := row.Find("td.title a")
		name := strings.TrimSpace(nameCell.Text())
		if name == "" {
			return
		}

		code, _ := nameCell.Attr("data-model")
		if code == "" {
			// model detail links carry the code as ?Model= query param
			if href, ok := nameCell.Attr("href"); ok {
				if parsed, err := url.Parse(href); err == nil {
					code = parsed.Query().Get("Model")
				}
			}
		}

		units := ParseUnits(row.Find("td.num.sales").Text())
		if units == nil {
			return
		}

		rec := models.RawSalesRecord{
			Maker:       strings.TrimSpace(row.Find("td.maker").Text()),
			ModelCode:   code,
			ModelName:   name,
			YearMonth:   yearMonth,
			SalesVolume: *units,
			MoMDiff:     ParseChangeField(row.Find("td.num.mom").Text()),
			YoYDiff:     ParseChangeField(row.Find("td.num.yoy").Text()),
		}
		if rank := ParseUnits(row.Find("td.rank").Text()); rank != nil {
			rec.Rank = rank
		}

		records = append(records, rec)
	})

	return records
}
