package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/jcal"
)

// CalendarStore defines the DB methods the month view needs.
type CalendarStore interface {
	ListHolidaysBetween(ctx context.Context, arg database.DateRange) ([]database.Holiday, error)
	ListDatesWithMenu(ctx context.Context, arg database.DateRange) ([]string, error)
	ListOrderDays(ctx context.Context, arg database.ListOrderDaysParams) ([]database.DaySummaryRow, error)
	ListOrderLinesByDay(ctx context.Context, arg database.PersonnelDay) ([]database.OrderLineRow, error)
}

// NewCalendarStore creates a CalendarStore from a DBTX (pool or tx).
type NewCalendarStore func(db database.DBTX) CalendarStore

// DayCell is one day of the personnel month view.
type DayCell struct {
	Date         string          `json:"date"`
	Weekday      int             `json:"weekday"`
	IsWeekend    bool            `json:"is_weekend"`
	IsHoliday    bool            `json:"is_holiday"`
	HolidayTitle string          `json:"holiday_title,omitempty"`
	HasMenu      bool            `json:"has_menu"`
	HasOrder     bool            `json:"has_order"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Debt         decimal.Decimal `json:"personnel_debt"`
}

// MonthView is a full Jalali month for one personnel.
type MonthView struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Days  []DayCell `json:"days"`
}

// OrderLine is one ordered item of a day, priced.
type OrderLine struct {
	ItemID      int32           `json:"item_id"`
	ItemName    string          `json:"item_name"`
	MealType    string          `json:"meal_type"`
	Quantity    int32           `json:"quantity"`
	PricePerOne decimal.Decimal `json:"price_per_one"`
	Building    string          `json:"delivery_building,omitempty"`
	Floor       string          `json:"delivery_floor,omitempty"`
}

// DayOrders is the per-day order breakdown with the subsidy split.
type DayOrders struct {
	Date          string          `json:"date"`
	Lines         []OrderLine     `json:"lines"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	SubsidyAmount decimal.Decimal `json:"subsidy_amount"`
	PersonnelDebt decimal.Decimal `json:"personnel_debt"`
}

// CalendarService assembles the personnel calendar read models.
type CalendarService struct {
	db       database.DBTX
	newStore NewCalendarStore
}

// NewCalendarService creates a new CalendarService.
func NewCalendarService(db database.DBTX, newStore NewCalendarStore) *CalendarService {
	return &CalendarService{db: db, newStore: newStore}
}

// MonthView builds the calendar for one Jalali month: weekends, holidays,
// days carrying a menu, and the personnel's ordered days with totals.
func (s *CalendarService) MonthView(ctx context.Context, personnel string, year, month int) (*MonthView, error) {
	if month < 1 || month > 12 || year < 1300 || year > 1500 {
		return nil, ErrInvalidDate
	}
	store := s.newStore(s.db)
	first, last := jcal.MonthRange(year, month)
	span := database.DateRange{From: first.String(), To: last.String()}

	holidays, err := store.ListHolidaysBetween(ctx, span)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	holidayByDate := make(map[string]string, len(holidays))
	for _, h := range holidays {
		holidayByDate[h.HolidayDate] = h.Title
	}

	menuDates, err := store.ListDatesWithMenu(ctx, span)
	if err != nil {
		return nil, fmt.Errorf("list menu dates: %w", err)
	}
	hasMenu := make(map[string]bool, len(menuDates))
	for _, d := range menuDates {
		hasMenu[d] = true
	}

	days, err := store.ListOrderDays(ctx, database.ListOrderDaysParams{
		Personnel: personnel,
		From:      span.From,
		To:        span.To,
	})
	if err != nil {
		return nil, fmt.Errorf("list order days: %w", err)
	}
	summaryByDate := make(map[string]database.DaySummaryRow, len(days))
	for _, d := range days {
		summaryByDate[d.DeliveryDate] = d
	}

	view := &MonthView{Year: year, Month: month}
	for day := 1; day <= jcal.DaysInMonth(year, month); day++ {
		d := jcal.Date{Year: year, Month: month, Day: day}
		key := d.String()
		cell := DayCell{
			Date:    key,
			Weekday: d.Weekday(),
			HasMenu: hasMenu[key],
		}
		for _, w := range jcal.WeekendWeekdays {
			if cell.Weekday == w {
				cell.IsWeekend = true
			}
		}
		if title, ok := holidayByDate[key]; ok {
			cell.IsHoliday = true
			cell.HolidayTitle = title
		}
		if sum, ok := summaryByDate[key]; ok {
			cell.HasOrder = true
			cell.TotalPrice = numericToDecimal(sum.TotalPrice)
			cell.Debt = numericToDecimal(sum.PersonnelDebt)
		}
		view.Days = append(view.Days, cell)
	}
	return view, nil
}

// DayOrders returns one day's order lines with the subsidy split applied.
func (s *CalendarService) DayOrders(ctx context.Context, personnel, date string) (*DayOrders, error) {
	d, ok := jcal.Parse(date)
	if !ok {
		return nil, ErrInvalidDate
	}
	store := s.newStore(s.db)
	key := d.String()

	rows, err := store.ListOrderLinesByDay(ctx, database.PersonnelDay{
		Personnel:    personnel,
		DeliveryDate: key,
	})
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	out := &DayOrders{Date: key}
	for _, r := range rows {
		out.Lines = append(out.Lines, OrderLine{
			ItemID:      r.ItemID,
			ItemName:    r.ItemName,
			MealType:    r.MealType,
			Quantity:    r.Quantity,
			PricePerOne: numericToDecimal(r.PricePerOne),
			Building:    r.DeliveryBuilding,
			Floor:       r.DeliveryFloor,
		})
	}

	days, err := store.ListOrderDays(ctx, database.ListOrderDaysParams{
		Personnel: personnel,
		From:      key,
		To:        key,
	})
	if err != nil {
		return nil, fmt.Errorf("list order days: %w", err)
	}
	if len(days) > 0 {
		out.TotalPrice = numericToDecimal(days[0].TotalPrice)
		out.SubsidyAmount = numericToDecimal(days[0].SubsidyAmount)
		out.PersonnelDebt = numericToDecimal(days[0].PersonnelDebt)
	}
	return out, nil
}
