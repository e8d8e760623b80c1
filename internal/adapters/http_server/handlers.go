package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotelops/internal/app"
	"hotelops/internal/domain"
	"hotelops/internal/tariff"
)

type Handlers struct {
	Commands  *app.CommandService
	Queries   *app.QueryService
	Stays     *app.StayService
	Reports   *app.ReportService
	Migration *app.MigrationService

	MigrateWorkers int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.listRooms)
			r.Post("/", h.createRoom)
			r.Get("/{id}", h.getRoom)
			r.Put("/{id}", h.updateRoom)
			r.Delete("/{id}", h.deleteRoom)
			r.Post("/{id}/checkin", h.checkIn)
			r.Post("/{id}/checkin-company", h.checkIn)
			r.Get("/{id}/current-cost", h.currentCost)
			r.Post("/{id}/checkout", h.checkOut)
			r.Get("/{id}/guests", h.roomGuests)
		})
		r.Route("/guests", func(r chi.Router) {
			r.Get("/", h.listGuests)
			r.Post("/", h.createGuest)
			r.Get("/{id}", h.getGuest)
			r.Put("/{id}", h.updateGuest)
			r.Delete("/{id}", h.deleteGuest)
		})
		r.Route("/dishes", func(r chi.Router) {
			r.Get("/", h.listDishes)
			r.Post("/", h.createDish)
			r.Put("/{id}", h.updateDish)
			r.Delete("/{id}", h.deleteDish)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/companies", h.orderCompanies)
			r.Get("/dishes", h.orderDishes)
			r.Get("/company-report", h.companyReport)
			r.Get("/company-summary", h.companySummary)
		})
		r.Get("/bills", h.listBills)
		r.Get("/invoices", h.listInvoices)
		r.Put("/invoices/{id}/payment", h.setPayment)

		r.Get("/reports/revenue", h.revenue)
		r.Get("/reports/popular-dishes", h.popularDishes)
		r.Get("/reports/room-occupancy", h.roomOccupancy)
		r.Get("/dashboard/stats", h.dashboard)

		r.Post("/migrate/rooms", h.migrateRooms)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// statusOf maps service errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrRoomNotAvailable),
		errors.Is(err, domain.ErrRoomNotOccupied):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNoGuests),
		errors.Is(err, tariff.ErrInvalidInterval),
		errors.Is(err, tariff.ErrInvalidDuration),
		errors.Is(err, tariff.ErrUnrecognizedBookingMode),
		errors.Is(err, tariff.ErrNegativeTariff):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, status, http.StatusText(status), "internal error")
		return
	}
	writeProblem(w, status, http.StatusText(status), err.Error())
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers GETs with a weak ETag and honours If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "encode response")
		return
	}
	if r.Method == http.MethodGet && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// queryTime accepts RFC3339 or a plain date. A plain date used as an upper
// bound covers the whole day.
func queryTime(q url.Values, key string, endOfDay bool) (*time.Time, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrValidation, "%s: expected RFC3339 or YYYY-MM-DD, got %q", key, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryRange(q url.Values, fromKey, toKey string) (from, to *time.Time, err error) {
	if from, err = queryTime(q, fromKey, false); err != nil {
		return nil, nil, err
	}
	if to, err = queryTime(q, toKey, true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func queryLimit(q url.Values) (int, error) {
	ls := q.Get("limit")
	if ls == "" {
		return 0, nil
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 {
		return 0, errors.Wrapf(domain.ErrValidation, "limit must be a positive integer, got %q", ls)
	}
	return l, nil
}

/********** rooms **********/

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Queries.ListRooms(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rooms)
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Queries.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, room)
}

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	var in app.RoomInput
	if !decode(w, r, &in) {
		return
	}
	room, err := h.Commands.CreateRoom(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, room)
}

type roomPatchBody struct {
	Number *string          `json:"number"`
	Type   *domain.RoomType `json:"type"`
	Tariff *tariff.Tariff   `json:"tariff"`
}

func (h *Handlers) updateRoom(w http.ResponseWriter, r *http.Request) {
	var body roomPatchBody
	if !decode(w, r, &body) {
		return
	}
	room, err := h.Commands.UpdateRoom(r.Context(), chi.URLParam(r, "id"), domain.RoomPatch{
		Number: body.Number,
		Type:   body.Type,
		Tariff: body.Tariff,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, room)
}

func (h *Handlers) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.Commands.DeleteRoom(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) checkIn(w http.ResponseWriter, r *http.Request) {
	var in app.CheckInInput
	if !decode(w, r, &in) {
		return
	}
	room, err := h.Stays.CheckIn(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, room)
}

func (h *Handlers) currentCost(w http.ResponseWriter, r *http.Request) {
	view, err := h.Stays.PreviewCost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	// changes with the clock
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, view)
}

func (h *Handlers) checkOut(w http.ResponseWriter, r *http.Request) {
	res, err := h.Stays.CheckOut(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *Handlers) roomGuests(w http.ResponseWriter, r *http.Request) {
	out, err := h.Queries.RoomGuests(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

/********** guests **********/

func (h *Handlers) listGuests(w http.ResponseWriter, r *http.Request) {
	gs, err := h.Queries.ListGuests(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, gs)
}

func (h *Handlers) getGuest(w http.ResponseWriter, r *http.Request) {
	g, err := h.Queries.GetGuest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, g)
}

func (h *Handlers) createGuest(w http.ResponseWriter, r *http.Request) {
	var in app.GuestInput
	if !decode(w, r, &in) {
		return
	}
	g, err := h.Commands.CreateGuest(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, g)
}

func (h *Handlers) updateGuest(w http.ResponseWriter, r *http.Request) {
	var p app.GuestPatch
	if !decode(w, r, &p) {
		return
	}
	g, err := h.Commands.UpdateGuest(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, g)
}

func (h *Handlers) deleteGuest(w http.ResponseWriter, r *http.Request) {
	if err := h.Commands.DeleteGuest(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** dishes & orders **********/

func (h *Handlers) listDishes(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Queries.ListDishes(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ds)
}

func (h *Handlers) createDish(w http.ResponseWriter, r *http.Request) {
	var in app.DishInput
	if !decode(w, r, &in) {
		return
	}
	d, err := h.Commands.CreateDish(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, d)
}

func (h *Handlers) updateDish(w http.ResponseWriter, r *http.Request) {
	var in app.DishInput
	if !decode(w, r, &in) {
		return
	}
	d, err := h.Commands.UpdateDish(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (h *Handlers) deleteDish(w http.ResponseWriter, r *http.Request) {
	if err := h.Commands.DeleteDish(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := queryRange(q, "start_date", "end_date")
	if err != nil {
		fail(w, r, err)
		return
	}
	limit, err := queryLimit(q)
	if err != nil {
		fail(w, r, err)
		return
	}
	orders, err := h.Queries.ListOrders(r.Context(), domain.OrderFilter{
		From:    from,
		To:      to,
		Company: q.Get("company"),
		Dish:    q.Get("dish"),
		Limit:   limit,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, orders)
}

func (h *Handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var in app.OrderInput
	if !decode(w, r, &in) {
		return
	}
	o, err := h.Commands.CreateOrder(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, o)
}

func (h *Handlers) orderCompanies(w http.ResponseWriter, r *http.Request) {
	out, err := h.Queries.OrderCompanies(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) orderDishes(w http.ResponseWriter, r *http.Request) {
	out, err := h.Queries.OrderDishes(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) companyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	company := strings.TrimSpace(q.Get("company"))
	if company == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid company", "company is required")
		return
	}
	from, to, err := queryRange(q, "start_date", "end_date")
	if err != nil {
		fail(w, r, err)
		return
	}
	rep, err := h.Reports.CompanyOrders(r.Context(), company, app.ParsePeriod(q.Get("period")), from, to)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (h *Handlers) companySummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryRange(r.URL.Query(), "start_date", "end_date")
	if err != nil {
		fail(w, r, err)
		return
	}
	rep, err := h.Reports.CompaniesSummary(r.Context(), from, to)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

/********** billing **********/

func (h *Handlers) listBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := queryRange(q, "start_date", "end_date")
	if err != nil {
		fail(w, r, err)
		return
	}
	limit, err := queryLimit(q)
	if err != nil {
		fail(w, r, err)
		return
	}
	bills, err := h.Queries.ListBills(r.Context(), domain.BillFilter{From: from, To: to, Limit: limit})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, bills)
}

func (h *Handlers) listInvoices(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r.URL.Query())
	if err != nil {
		fail(w, r, err)
		return
	}
	invs, err := h.Queries.ListInvoices(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, invs)
}

func (h *Handlers) setPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.InvoiceStatus `json:"status"`
	}
	if !decode(w, r, &body) {
		return
	}
	inv, err := h.Commands.SetInvoiceStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, inv)
}

/********** reports **********/

func (h *Handlers) revenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := queryRange(q, "start_date", "end_date")
	if err != nil {
		fail(w, r, err)
		return
	}
	rep, err := h.Reports.Revenue(r.Context(), app.ParsePeriod(q.Get("period")), from, to)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (h *Handlers) popularDishes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r.URL.Query())
	if err != nil {
		fail(w, r, err)
		return
	}
	out, err := h.Reports.PopularDishes(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) roomOccupancy(w http.ResponseWriter, r *http.Request) {
	out, err := h.Reports.RoomOccupancy(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	out, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) migrateRooms(w http.ResponseWriter, r *http.Request) {
	workers := h.MigrateWorkers
	if ws := r.URL.Query().Get("workers"); ws != "" {
		n, err := strconv.Atoi(ws)
		if err != nil || n < 1 || n > 64 {
			writeProblem(w, http.StatusBadRequest, "Invalid workers", "workers must be an integer between 1 and 64")
			return
		}
		workers = n
	}
	rep, err := h.Migration.MigrateRooms(r.Context(), workers)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}
