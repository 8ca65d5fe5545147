package report

import (
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/database"
)

// ItemsDaily builds the kitchen headcount sheet: ordered quantity per item
// per day.
func ItemsDaily(rows []database.ItemsDailyReportRow) Table {
	t := Table{
		Name:   "ItemsDaily",
		Header: []string{"تاریخ", "غذا", "وعده", "تعداد"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.DeliveryDate,
			r.ItemName,
			mealTypeName(r.MealType),
			strconv.FormatInt(r.TotalQuantity, 10),
		})
	}
	return t
}

// PersonnelFinancial builds the per-personnel spending sheet over a range.
func PersonnelFinancial(rows []database.PersonnelFinancialRow) Table {
	t := Table{
		Name:   "PersonnelFinancial",
		Header: []string{"کد پرسنلی", "نام", "جمع کل", "یارانه", "بدهی پرسنل"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Personnel,
			r.FullName,
			money(r.TotalPrice),
			money(r.SubsidyAmount),
			money(r.PersonnelDebt),
		})
	}
	return t
}

// ItemOrderingPersonnel builds the delivery sheet: who ordered one item on
// one date, with quantities and locations.
func ItemOrderingPersonnel(rows []database.ItemOrderingPersonnelRow) Table {
	t := Table{
		Name:   "ItemPersonnel",
		Header: []string{"کد پرسنلی", "نام", "تعداد", "ساختمان", "طبقه"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Personnel,
			r.FullName,
			strconv.FormatInt(int64(r.Quantity), 10),
			r.DeliveryBuilding,
			r.DeliveryFloor,
		})
	}
	return t
}

func mealTypeName(mt string) string {
	switch mt {
	case "BRF":
		return "صبحانه"
	case "LNC":
		return "ناهار"
	}
	return mt
}

func money(n pgtype.Numeric) string {
	if !n.Valid {
		return "0"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0"
	}
	return d.StringFixed(0)
}
