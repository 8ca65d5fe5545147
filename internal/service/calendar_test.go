package service

import (
	"context"
	"testing"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/enum"
)

// mockCalendarStore implements CalendarStore with configurable behavior.
type mockCalendarStore struct {
	listHolidaysBetweenFn func(ctx context.Context, arg database.DateRange) ([]database.Holiday, error)
	listDatesWithMenuFn   func(ctx context.Context, arg database.DateRange) ([]string, error)
	listOrderDaysFn       func(ctx context.Context, arg database.ListOrderDaysParams) ([]database.DaySummaryRow, error)
	listOrderLinesByDayFn func(ctx context.Context, arg database.PersonnelDay) ([]database.OrderLineRow, error)
}

func (m *mockCalendarStore) ListHolidaysBetween(ctx context.Context, arg database.DateRange) ([]database.Holiday, error) {
	return m.listHolidaysBetweenFn(ctx, arg)
}
func (m *mockCalendarStore) ListDatesWithMenu(ctx context.Context, arg database.DateRange) ([]string, error) {
	return m.listDatesWithMenuFn(ctx, arg)
}
func (m *mockCalendarStore) ListOrderDays(ctx context.Context, arg database.ListOrderDaysParams) ([]database.DaySummaryRow, error) {
	return m.listOrderDaysFn(ctx, arg)
}
func (m *mockCalendarStore) ListOrderLinesByDay(ctx context.Context, arg database.PersonnelDay) ([]database.OrderLineRow, error) {
	return m.listOrderLinesByDayFn(ctx, arg)
}

func newTestCalendarService(store *mockCalendarStore) *CalendarService {
	return NewCalendarService(nil, func(db database.DBTX) CalendarStore { return store })
}

func TestMonthView(t *testing.T) {
	store := &mockCalendarStore{
		listHolidaysBetweenFn: func(ctx context.Context, arg database.DateRange) ([]database.Holiday, error) {
			return []database.Holiday{{HolidayDate: "1402/09/16", Title: "تعطیل رسمی"}}, nil
		},
		listDatesWithMenuFn: func(ctx context.Context, arg database.DateRange) ([]string, error) {
			return []string{"1402/09/11", "1402/09/12"}, nil
		},
		listOrderDaysFn: func(ctx context.Context, arg database.ListOrderDaysParams) ([]database.DaySummaryRow, error) {
			return []database.DaySummaryRow{{
				DeliveryDate:  "1402/09/11",
				TotalPrice:    makeNumeric("150000.00"),
				SubsidyAmount: makeNumeric("100000.00"),
				PersonnelDebt: makeNumeric("50000.00"),
			}}, nil
		},
		listOrderLinesByDayFn: func(ctx context.Context, arg database.PersonnelDay) ([]database.OrderLineRow, error) {
			return nil, nil
		},
	}

	view, err := newTestCalendarService(store).MonthView(context.Background(), testPersonnel, 1402, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Days) != 30 {
		t.Fatalf("Azar has 30 days, got %d", len(view.Days))
	}

	byDate := map[string]DayCell{}
	for _, c := range view.Days {
		byDate[c.Date] = c
	}

	// 1402/09/09 is a Thursday, part of the company weekend.
	if !byDate["1402/09/09"].IsWeekend || byDate["1402/09/10"].IsWeekend == false {
		t.Error("thursday and friday must be flagged as weekend")
	}
	if byDate["1402/09/11"].IsWeekend {
		t.Error("saturday is a working day")
	}
	if !byDate["1402/09/16"].IsHoliday || byDate["1402/09/16"].HolidayTitle == "" {
		t.Errorf("holiday cell: got %+v", byDate["1402/09/16"])
	}
	if !byDate["1402/09/12"].HasMenu || byDate["1402/09/13"].HasMenu {
		t.Error("menu flags wrong")
	}

	ordered := byDate["1402/09/11"]
	if !ordered.HasOrder {
		t.Fatal("1402/09/11 should carry an order")
	}
	if ordered.TotalPrice.StringFixed(2) != "150000.00" || ordered.Debt.StringFixed(2) != "50000.00" {
		t.Errorf("ordered day totals: got %s / %s", ordered.TotalPrice, ordered.Debt)
	}
}

func TestMonthView_BadMonth(t *testing.T) {
	svc := newTestCalendarService(&mockCalendarStore{})
	if _, err := svc.MonthView(context.Background(), testPersonnel, 1402, 13); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestDayOrders(t *testing.T) {
	store := &mockCalendarStore{
		listOrderLinesByDayFn: func(ctx context.Context, arg database.PersonnelDay) ([]database.OrderLineRow, error) {
			return []database.OrderLineRow{
				{ItemID: 7, ItemName: "khorak", MealType: enum.MealTypeLunch, Quantity: 2, PricePerOne: makeNumeric("50000.00")},
				{ItemID: 3, ItemName: "nan panir", MealType: enum.MealTypeBreakfast, Quantity: 1, PricePerOne: makeNumeric("20000.00"), DeliveryBuilding: "B2", DeliveryFloor: "F3"},
			}, nil
		},
		listOrderDaysFn: func(ctx context.Context, arg database.ListOrderDaysParams) ([]database.DaySummaryRow, error) {
			return []database.DaySummaryRow{{
				DeliveryDate:  arg.From,
				TotalPrice:    makeNumeric("120000.00"),
				SubsidyAmount: makeNumeric("100000.00"),
				PersonnelDebt: makeNumeric("20000.00"),
			}}, nil
		},
	}

	day, err := newTestCalendarService(store).DayOrders(context.Background(), testPersonnel, testDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(day.Lines))
	}
	if day.Lines[1].Building != "B2" {
		t.Errorf("breakfast line location: got %+v", day.Lines[1])
	}
	if day.TotalPrice.StringFixed(2) != "120000.00" || day.PersonnelDebt.StringFixed(2) != "20000.00" {
		t.Errorf("day totals: got %s / %s", day.TotalPrice, day.PersonnelDebt)
	}
}
