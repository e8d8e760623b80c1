package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"hotelops/internal/app"
	"hotelops/internal/domain"
)

// stayAndLeave runs one hourly stay of d through the services.
func stayAndLeave(t *testing.T, h *harness, roomID string, d time.Duration) domain.BillRecord {
	t.Helper()
	ctx := context.Background()
	if _, err := h.stays.CheckIn(ctx, roomID, app.CheckInInput{GuestName: "Ana"}); err != nil {
		t.Fatalf("check in: %v", err)
	}
	h.clock.Advance(d)
	res, err := h.stays.CheckOut(ctx, roomID)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	return res.Bill
}

func TestRevenue_Buckets(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	r := h.room(t, "101", domain.RoomSingle)

	// bills land on 2025-03-01 (80000), 2025-03-02 (120000) and 2025-03-09 (80000)
	stayAndLeave(t, h, r.ID, time.Hour)
	h.clock.Advance(24 * time.Hour)
	stayAndLeave(t, h, r.ID, 2*time.Hour)
	h.clock.Advance(7 * 24 * time.Hour)
	stayAndLeave(t, h, r.ID, time.Hour)

	from := t0.Add(-time.Hour)
	to := h.clock.Now()

	daily, err := h.reports.Revenue(ctx, app.PeriodDaily, &from, &to)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if daily.TotalRevenue != 280000 || len(daily.RevenueByPeriod) != 3 || daily.RevenueByPeriod["2025-03-02"] != 120000 {
		t.Fatalf("unexpected daily revenue: %+v", daily)
	}

	weekly, _ := h.reports.Revenue(ctx, app.PeriodWeekly, &from, &to)
	// 2025-03-01/02 are ISO week 9, 2025-03-09 is the Sunday closing week 10
	if weekly.RevenueByPeriod["2025-W09"] != 200000 || weekly.RevenueByPeriod["2025-W10"] != 80000 {
		t.Fatalf("unexpected weekly revenue: %+v", weekly.RevenueByPeriod)
	}

	monthly, _ := h.reports.Revenue(ctx, app.PeriodMonthly, &from, &to)
	if monthly.RevenueByPeriod["2025-03"] != 280000 {
		t.Fatalf("unexpected monthly revenue: %+v", monthly.RevenueByPeriod)
	}

	// default window is today only
	today, _ := h.reports.Revenue(ctx, app.PeriodDaily, nil, nil)
	if today.TotalRevenue != 80000 {
		t.Fatalf("today's revenue: %d", today.TotalRevenue)
	}

	if _, err := h.reports.Revenue(ctx, app.PeriodDaily, &to, &from); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("inverted window: %v", err)
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]app.Period{
		"":        app.PeriodDaily,
		"WEEKLY":  app.PeriodWeekly,
		"monthly": app.PeriodMonthly,
		"yearly":  app.PeriodDaily,
	} {
		if got := app.ParsePeriod(in); got != want {
			t.Fatalf("ParsePeriod(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPopularDishesAndCompanies(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	pho, _ := h.commands.CreateDish(ctx, app.DishInput{Name: "Pho", Price: 45000})
	bun, _ := h.commands.CreateDish(ctx, app.DishInput{Name: "Bun", Price: 40000})
	tea, _ := h.commands.CreateDish(ctx, app.DishInput{Name: "Tea", Price: 10000})

	for _, o := range []app.OrderInput{
		{CompanyName: "ACME", DishID: pho.ID, Quantity: 2},
		{CompanyName: "ACME", DishID: bun.ID, Quantity: 1},
		{CompanyName: "Globex", DishID: pho.ID, Quantity: 3},
		{CompanyName: "Globex", DishID: tea.ID, Quantity: 4},
	} {
		if _, err := h.commands.CreateOrder(ctx, o); err != nil {
			t.Fatalf("order: %v", err)
		}
		h.clock.Advance(time.Minute)
	}

	top, err := h.reports.PopularDishes(ctx, 2)
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(top) != 2 || top[0].DishName != "Pho" || top[0].TotalQuantity != 5 || top[0].OrderCount != 2 || top[0].TotalRevenue != 225000 {
		t.Fatalf("unexpected top dish: %+v", top)
	}
	if top[1].DishName != "Tea" {
		t.Fatalf("unexpected runner up: %+v", top[1])
	}

	sum, err := h.reports.CompaniesSummary(ctx, nil, nil)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum.Companies) != 2 || sum.Companies[0].CompanyName != "Globex" || sum.GrandTotal != 305000 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	acme := sum.Companies[1]
	if acme.TotalOrders != 2 || len(acme.UniqueDishes) != 2 || acme.AverageOrderValue != 65000 {
		t.Fatalf("unexpected ACME summary: %+v", acme)
	}

	rep, err := h.reports.CompanyOrders(ctx, "acme", app.PeriodDaily, nil, nil)
	if err != nil {
		t.Fatalf("company report: %v", err)
	}
	if rep.TotalOrders != 2 || rep.TotalAmount != 130000 || len(rep.Details) != 1 || rep.Details[0].Date != "2025-03-01" {
		t.Fatalf("unexpected company report: %+v", rep)
	}
	if _, err := h.reports.CompanyOrders(ctx, " ", app.PeriodDaily, nil, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank company: %v", err)
	}
}

func TestOccupancyAndDashboard(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a := h.room(t, "101", domain.RoomSingle)
	h.room(t, "102", domain.RoomSingle)
	h.room(t, "103", domain.RoomSingle)
	d := h.room(t, "201", domain.RoomDouble)

	stayAndLeave(t, h, d.ID, time.Hour)
	for _, id := range []string{a.ID, d.ID} {
		if _, err := h.stays.CheckIn(ctx, id, app.CheckInInput{GuestName: "Ana"}); err != nil {
			t.Fatalf("check in: %v", err)
		}
	}

	occ, err := h.reports.RoomOccupancy(ctx)
	if err != nil {
		t.Fatalf("occupancy: %v", err)
	}
	if len(occ) != 2 || occ[0].Type != domain.RoomDouble || occ[0].OccupancyRate != 100 {
		t.Fatalf("unexpected double occupancy: %+v", occ)
	}
	if occ[1].TotalRooms != 3 || occ[1].OccupiedRooms != 1 || occ[1].OccupancyRate != 33.3 {
		t.Fatalf("unexpected single occupancy: %+v", occ[1])
	}

	pho, _ := h.commands.CreateDish(ctx, app.DishInput{Name: "Pho", Price: 45000})
	if _, err := h.commands.CreateOrder(ctx, app.OrderInput{CompanyName: "ACME", DishID: pho.ID, Quantity: 1}); err != nil {
		t.Fatalf("order: %v", err)
	}

	st, err := h.reports.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	want := app.DashboardStats{TotalRooms: 4, OccupiedRooms: 2, EmptyRooms: 2, OccupancyRate: 50, TodayOrders: 1, TodayRevenue: 80000}
	if st != want {
		t.Fatalf("dashboard = %+v, want %+v", st, want)
	}

	h.store.failBills = errors.New("bills down")
	if _, err := h.reports.Dashboard(ctx); err == nil {
		t.Fatalf("dashboard should surface a failed read")
	}
}

func TestDashboard_Empty(t *testing.T) {
	h := newHarness()
	st, err := h.reports.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if st != (app.DashboardStats{}) {
		t.Fatalf("empty dashboard: %+v", st)
	}
}
