package app

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"hotelops/internal/domain"
	"hotelops/internal/tariff"
)

/********** alias registries (single source of truth) **********/

// Current paths come first; the flat fields of the older room layout follow.
var roomAliases = map[string][]string{
	"id":         {"id", "room_id"},
	"number":     {"number", "room_number"},
	"type":       {"type", "room_type"},
	"status":     {"status"},
	"created_at": {"created_at"},
	"updated_at": {"updated_at"},
}

var tariffAliases = map[string][]string{
	"hourly_first":      {"tariff.hourly_first", "pricing.hourly_first"},
	"hourly_second":     {"tariff.hourly_second", "pricing.hourly_second"},
	"hourly_additional": {"tariff.hourly_additional", "pricing.hourly_additional"},
	"daily_rate":        {"tariff.daily_rate", "pricing.daily_rate"},
	"monthly_rate":      {"tariff.monthly_rate", "pricing.monthly_rate"},
}

var occupancyAliases = map[string][]string{
	"check_in":          {"occupancy.interval.check_in", "check_in_date", "check_in_time"},
	"planned_check_out": {"occupancy.interval.planned_check_out", "check_out_date"},
	"mode":              {"occupancy.booking_type", "booking_type"},
	"duration":          {"occupancy.booking_duration", "booking_duration"},
	"committed":         {"occupancy.committed_cost", "total_cost"},
	"company":           {"occupancy.party.company_name", "company_name"},
	"guests":            {"occupancy.party.guests", "guests"},
	"guest_name":        {"guest_name"},
}

// legacyKeys are top-level fields only the older layout writes.
var legacyKeys = []string{
	"pricing", "guest_name", "company_name", "guests", "check_in_date",
	"check_out_date", "total_cost", "booking_type", "booking_duration", "room_number",
}

// legacyIndividual is the label the older release used for walk-in guests.
const legacyIndividual = "Cá nhân"

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstAmountFlexible: whole amount from float64/int/int64/string ("80,000" too).
func firstAmountFlexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(math.Round(v))
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				x := int64(math.Round(f))
				return &x
			}
		}
	}
	return nil
}

// layouts the older release is known to have written; zone-less values are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// firstTimeFlexible: time from time.Time or an ISO-8601-ish string.
func firstTimeFlexible(m map[string]any, paths ...string) (*time.Time, error) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case time.Time:
			t := v.UTC()
			return &t, nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					t = t.UTC()
					return &t, nil
				}
			}
			return nil, errors.Wrapf(domain.ErrValidation, "%s: unparseable time %q", k, s)
		}
	}
	return nil, nil
}

func firstTimeAlias(m map[string]any, aliases map[string][]string, key string) (*time.Time, error) {
	return firstTimeFlexible(m, aliases[key]...)
}

// firstGuests: accept []any of {name, phone, email, id_card} maps or bare names.
func firstGuests(m map[string]any, paths ...string) []domain.Guest {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]domain.Guest, 0, len(raw))
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					out = append(out, domain.Guest{Name: s})
				}
			case map[string]any:
				g := domain.Guest{
					Name:   lookupStr(t, "name"),
					Phone:  lookupStr(t, "phone"),
					Email:  lookupStr(t, "email"),
					IDCard: lookupStr(t, "id_card"),
				}
				if g.Name != "" {
					out = append(out, g)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

/********** room mapper **********/

// IsLegacyRoom reports whether raw still carries the flat layout or lacks a
// structured tariff.
func IsLegacyRoom(raw map[string]any) bool {
	for _, k := range legacyKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	_, hasTariff := raw["tariff"].(map[string]any)
	return !hasTariff
}

// mapLegacyRoom rebuilds a room from either layout. now stamps rooms that
// never recorded their creation time.
func mapLegacyRoom(doc domain.RoomDocument, now time.Time) (domain.Room, error) {
	raw := doc.Raw
	id := doc.ID
	if id == "" {
		id = firstNonEmptyAlias(raw, roomAliases, "id")
	}
	if id == "" {
		return domain.Room{}, errors.Wrap(domain.ErrValidation, "room without id")
	}
	number := firstNonEmptyAlias(raw, roomAliases, "number")
	if number == "" {
		return domain.Room{}, errors.Wrapf(domain.ErrValidation, "room %s: missing number", id)
	}

	r := domain.Room{
		ID:     id,
		Number: number,
		Type:   domain.RoomType(strings.ToLower(firstNonEmptyAlias(raw, roomAliases, "type"))),
		Status: domain.RoomEmpty,
		Tariff: mapTariff(raw, tariffAliases),
	}
	if !r.Type.Valid() {
		r.Type = domain.RoomSingle
	}
	if err := r.Tariff.Validate(); err != nil {
		return domain.Room{}, errors.Wrapf(err, "room %s", id)
	}

	created, err := firstTimeAlias(raw, roomAliases, "created_at")
	if err != nil {
		return domain.Room{}, errors.Wrapf(err, "room %s", id)
	}
	r.CreatedAt = now
	if created != nil {
		r.CreatedAt = *created
	}
	r.UpdatedAt = now

	// booked and maintenance rooms of the older release are not in a stay
	if strings.EqualFold(firstNonEmptyAlias(raw, roomAliases, "status"), string(domain.RoomOccupied)) {
		occ, err := mapOccupancy(raw, r.Tariff)
		if err != nil {
			return domain.Room{}, errors.Wrapf(err, "room %s", id)
		}
		r.Status = domain.RoomOccupied
		r.Occupancy = &occ
	}
	return r, nil
}

// mapTariff takes each rate from the first alias present; missing rates keep
// their defaults.
func mapTariff(raw map[string]any, aliases map[string][]string) tariff.Tariff {
	t := tariff.Default()
	fields := []struct {
		key string
		dst *int64
	}{
		{"hourly_first", &t.HourlyFirst},
		{"hourly_second", &t.HourlySecond},
		{"hourly_additional", &t.HourlyAdditional},
		{"daily_rate", &t.DailyRate},
		{"monthly_rate", &t.MonthlyRate},
	}
	for _, f := range fields {
		if v := firstAmountFlexible(raw, aliases[f.key]...); v != nil {
			*f.dst = *v
		}
	}
	return t
}

func mapOccupancy(raw map[string]any, roomTariff tariff.Tariff) (domain.Occupancy, error) {
	in, err := firstTimeAlias(raw, occupancyAliases, "check_in")
	if err != nil {
		return domain.Occupancy{}, err
	}
	if in == nil {
		return domain.Occupancy{}, errors.Wrap(domain.ErrValidation, "occupied without check-in time")
	}
	planned, err := firstTimeAlias(raw, occupancyAliases, "planned_check_out")
	if err != nil {
		return domain.Occupancy{}, err
	}

	// rooms checked in before booking modes existed were all hourly;
	// unknown modes are carried as-is and priced by elapsed time.
	mode := tariff.Hourly
	if s := strings.ToLower(firstNonEmptyAlias(raw, occupancyAliases, "mode")); s != "" {
		mode = tariff.BookingMode(s)
	}
	duration := 1
	if d := firstAmountFlexible(raw, occupancyAliases["duration"]...); d != nil && *d > 0 {
		duration = int(*d)
	}

	guests := firstGuests(raw, occupancyAliases["guests"]...)
	company := firstNonEmptyAlias(raw, occupancyAliases, "company")
	if len(guests) == 0 {
		if name := firstNonEmptyAlias(raw, occupancyAliases, "guest_name"); name != "" {
			guests = []domain.Guest{{Name: name}}
		}
	}
	if company == "" || company == legacyIndividual {
		company = domain.IndividualParty
	}

	snapshot := roomTariff
	if _, ok := lookupAny(raw, "occupancy.tariff_snapshot").(map[string]any); ok {
		snapshot = mapTariff(raw, map[string][]string{
			"hourly_first":      {"occupancy.tariff_snapshot.hourly_first"},
			"hourly_second":     {"occupancy.tariff_snapshot.hourly_second"},
			"hourly_additional": {"occupancy.tariff_snapshot.hourly_additional"},
			"daily_rate":        {"occupancy.tariff_snapshot.daily_rate"},
			"monthly_rate":      {"occupancy.tariff_snapshot.monthly_rate"},
		})
	}

	return domain.Occupancy{
		Interval:       domain.Interval{CheckIn: *in, PlannedCheckOut: planned},
		Mode:           mode,
		Duration:       duration,
		CommittedCost:  firstAmountFlexible(raw, occupancyAliases["committed"]...),
		TariffSnapshot: snapshot,
		Party:          domain.Party{CompanyName: company, Guests: guests},
	}, nil
}
