package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"hotelops/internal/domain"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod falls back to daily for anything it does not know.
func ParsePeriod(s string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeekly, PeriodMonthly:
		return p
	}
	return PeriodDaily
}

func (p Period) bucket(t time.Time) string {
	t = t.UTC()
	switch p {
	case PeriodWeekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case PeriodMonthly:
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

type RevenueReport struct {
	Period          Period           `json:"period"`
	Start           time.Time        `json:"start_date"`
	End             time.Time        `json:"end_date"`
	TotalRevenue    int64            `json:"total_revenue"`
	RevenueByPeriod map[string]int64 `json:"revenue_by_period"`
}

type DishPopularity struct {
	DishID        string `json:"dish_id"`
	DishName      string `json:"dish_name"`
	TotalQuantity int    `json:"total_quantity"`
	TotalRevenue  int64  `json:"total_revenue"`
	OrderCount    int    `json:"order_count"`
}

type TypeOccupancy struct {
	Type          domain.RoomType `json:"type"`
	TotalRooms    int             `json:"total_rooms"`
	OccupiedRooms int             `json:"occupied_rooms"`
	EmptyRooms    int             `json:"empty_rooms"`
	OccupancyRate float64         `json:"occupancy_rate"`
}

type CompanyOrderDay struct {
	Date        string         `json:"date"`
	TotalOrders int            `json:"total_orders"`
	TotalAmount int64          `json:"total_amount"`
	Orders      []domain.Order `json:"orders"`
}

type CompanyOrderReport struct {
	CompanyName       string            `json:"company_name"`
	Period            Period            `json:"period"`
	TotalOrders       int               `json:"total_orders"`
	TotalAmount       int64             `json:"total_amount"`
	AverageOrderValue float64           `json:"average_order_value"`
	Details           []CompanyOrderDay `json:"details"`
}

type CompanySummary struct {
	CompanyName       string    `json:"company_name"`
	TotalOrders       int       `json:"total_orders"`
	TotalAmount       int64     `json:"total_amount"`
	UniqueDishes      []string  `json:"unique_dishes"`
	LastOrderDate     time.Time `json:"last_order_date"`
	AverageOrderValue float64   `json:"average_order_value"`
}

type CompaniesSummary struct {
	Companies  []CompanySummary `json:"companies"`
	GrandTotal int64            `json:"grand_total"`
}

type DashboardStats struct {
	TotalRooms    int     `json:"total_rooms"`
	OccupiedRooms int     `json:"occupied_rooms"`
	EmptyRooms    int     `json:"empty_rooms"`
	OccupancyRate float64 `json:"occupancy_rate"`
	TodayOrders   int     `json:"today_orders"`
	TodayRevenue  int64   `json:"today_revenue"`
}

// ReportService aggregates in Go over repository reads; no store is asked to
// group or sum.
type ReportService struct {
	store domain.Store
	rt    runtime
}

func NewReportService(s domain.Store, opts ...Option) *ReportService {
	return &ReportService{store: s, rt: newRuntime(opts)}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Revenue sums billed room charges between start and end, which default to
// today's midnight (UTC) and now.
func (s *ReportService) Revenue(ctx context.Context, period Period, start, end *time.Time) (RevenueReport, error) {
	now := s.rt.now()
	from, to := startOfDay(now), now
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	if to.Before(from) {
		return RevenueReport{}, errors.Wrap(domain.ErrValidation, "end_date before start_date")
	}

	bills, err := s.store.ListBills(ctx, domain.BillFilter{From: &from, To: &to})
	if err != nil {
		return RevenueReport{}, errors.Wrap(err, "list bills")
	}
	out := RevenueReport{Period: period, Start: from, End: to, RevenueByPeriod: map[string]int64{}}
	for _, b := range bills {
		out.TotalRevenue += b.Cost.TotalCost
		out.RevenueByPeriod[period.bucket(b.CreatedAt)] += b.Cost.TotalCost
	}
	return out, nil
}

// PopularDishes ranks dishes by quantity ordered, ties broken by name.
func (s *ReportService) PopularDishes(ctx context.Context, limit int) ([]DishPopularity, error) {
	if limit <= 0 {
		limit = 10
	}
	orders, err := s.store.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	byDish := map[string]*DishPopularity{}
	for _, o := range orders {
		p, ok := byDish[o.DishID]
		if !ok {
			p = &DishPopularity{DishID: o.DishID, DishName: o.DishName}
			byDish[o.DishID] = p
		}
		p.TotalQuantity += o.Quantity
		p.TotalRevenue += o.TotalPrice
		p.OrderCount++
	}
	out := make([]DishPopularity, 0, len(byDish))
	for _, p := range byDish {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].DishName < out[j].DishName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ReportService) RoomOccupancy(ctx context.Context) ([]TypeOccupancy, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	byType := map[domain.RoomType]*TypeOccupancy{}
	for _, r := range rooms {
		o, ok := byType[r.Type]
		if !ok {
			o = &TypeOccupancy{Type: r.Type}
			byType[r.Type] = o
		}
		o.TotalRooms++
		if r.Status == domain.RoomOccupied {
			o.OccupiedRooms++
		} else {
			o.EmptyRooms++
		}
	}
	out := make([]TypeOccupancy, 0, len(byType))
	for _, o := range byType {
		o.OccupancyRate = rate(o.OccupiedRooms, o.TotalRooms)
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// CompanyOrders groups one company's orders by day or month, newest first.
// The company is matched as a case-insensitive substring.
func (s *ReportService) CompanyOrders(ctx context.Context, company string, period Period, from, to *time.Time) (CompanyOrderReport, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return CompanyOrderReport{}, errors.Wrap(domain.ErrValidation, "company_name is required")
	}
	if period == PeriodWeekly {
		period = PeriodDaily
	}
	orders, err := s.store.ListOrders(ctx, domain.OrderFilter{From: from, To: to, Company: company})
	if err != nil {
		return CompanyOrderReport{}, errors.Wrap(err, "list orders")
	}

	out := CompanyOrderReport{CompanyName: company, Period: period, Details: []CompanyOrderDay{}}
	idx := map[string]int{}
	for _, o := range orders {
		key := period.bucket(o.OrderDate)
		i, ok := idx[key]
		if !ok {
			i = len(out.Details)
			idx[key] = i
			out.Details = append(out.Details, CompanyOrderDay{Date: key})
		}
		d := &out.Details[i]
		d.TotalOrders++
		d.TotalAmount += o.TotalPrice
		d.Orders = append(d.Orders, o)
		out.TotalOrders++
		out.TotalAmount += o.TotalPrice
	}
	sort.SliceStable(out.Details, func(i, j int) bool { return out.Details[i].Date > out.Details[j].Date })
	out.AverageOrderValue = average(out.TotalAmount, out.TotalOrders)
	return out, nil
}

// CompaniesSummary totals orders per company, biggest spender first.
func (s *ReportService) CompaniesSummary(ctx context.Context, from, to *time.Time) (CompaniesSummary, error) {
	orders, err := s.store.ListOrders(ctx, domain.OrderFilter{From: from, To: to})
	if err != nil {
		return CompaniesSummary{}, errors.Wrap(err, "list orders")
	}
	type acc struct {
		CompanySummary
		dishes map[string]struct{}
	}
	byCompany := map[string]*acc{}
	for _, o := range orders {
		a, ok := byCompany[o.CompanyName]
		if !ok {
			a = &acc{CompanySummary: CompanySummary{CompanyName: o.CompanyName}, dishes: map[string]struct{}{}}
			byCompany[o.CompanyName] = a
		}
		a.TotalOrders++
		a.TotalAmount += o.TotalPrice
		a.dishes[o.DishName] = struct{}{}
		if o.OrderDate.After(a.LastOrderDate) {
			a.LastOrderDate = o.OrderDate
		}
	}

	out := CompaniesSummary{Companies: make([]CompanySummary, 0, len(byCompany))}
	for _, a := range byCompany {
		for d := range a.dishes {
			a.UniqueDishes = append(a.UniqueDishes, d)
		}
		sort.Strings(a.UniqueDishes)
		a.AverageOrderValue = average(a.TotalAmount, a.TotalOrders)
		out.GrandTotal += a.TotalAmount
		out.Companies = append(out.Companies, a.CompanySummary)
	}
	sort.Slice(out.Companies, func(i, j int) bool {
		if out.Companies[i].TotalAmount != out.Companies[j].TotalAmount {
			return out.Companies[i].TotalAmount > out.Companies[j].TotalAmount
		}
		return out.Companies[i].CompanyName < out.Companies[j].CompanyName
	})
	return out, nil
}

// Dashboard reads rooms, today's orders and today's bills concurrently.
func (s *ReportService) Dashboard(ctx context.Context) (DashboardStats, error) {
	now := s.rt.now()
	today := startOfDay(now)

	var (
		rooms  []domain.Room
		orders []domain.Order
		bills  []domain.BillRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = s.store.ListRooms(gctx)
		return errors.Wrap(err, "list rooms")
	})
	g.Go(func() error {
		var err error
		orders, err = s.store.ListOrders(gctx, domain.OrderFilter{From: &today})
		return errors.Wrap(err, "list orders")
	})
	g.Go(func() error {
		var err error
		bills, err = s.store.ListBills(gctx, domain.BillFilter{From: &today})
		return errors.Wrap(err, "list bills")
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}

	var st DashboardStats
	st.TotalRooms = len(rooms)
	for _, r := range rooms {
		if r.Status == domain.RoomOccupied {
			st.OccupiedRooms++
		} else {
			st.EmptyRooms++
		}
	}
	st.OccupancyRate = rate(st.OccupiedRooms, st.TotalRooms)
	st.TodayOrders = len(orders)
	for _, b := range bills {
		st.TodayRevenue += b.Cost.TotalCost
	}
	return st, nil
}

// rate is part/total as a percentage with one decimal; zero when total is zero.
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func average(sum int64, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*100) / 100
}
