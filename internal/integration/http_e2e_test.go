//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "hotelops/internal/adapters/http_server"
	redisad "hotelops/internal/adapters/redis"
	"hotelops/internal/app"
	"hotelops/internal/domain"
	mysqlrepo "hotelops/internal/storage/mysql"
)

// ---------- helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func call(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res.StatusCode
}

// ---------- the test ----------
func TestHTTP_EndToEnd_Stay(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=hotel",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/hotel?multiStatements=true&charset=utf8mb4,utf8",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = mysqlrepo.Open(context.Background(), dsn)
		return e
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Apply the real migrations
	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	srv := server.New(10*time.Second, 0, 0)
	srv.MountHandlers(&server.Handlers{
		Commands:       app.NewCommandService(repo, cache),
		Queries:        app.NewQueryService(repo, cache, time.Minute),
		Stays:          app.NewStayService(repo, cache),
		Reports:        app.NewReportService(repo),
		Migration:      app.NewMigrationService(repo, cache),
		MigrateWorkers: 4,
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()
	api := ts.URL + "/api"

	var room domain.Room
	if st := call(t, http.MethodPost, api+"/rooms", map[string]any{"number": "201", "type": "double"}, &room); st != http.StatusCreated {
		t.Fatalf("create room: %d", st)
	}

	checkIn := time.Now().UTC().Add(-3 * time.Hour)
	st := call(t, http.MethodPost, api+"/rooms/"+room.ID+"/checkin-company", map[string]any{
		"company_name":  "ACME",
		"guests":        []map[string]string{{"name": "Ann"}, {"name": "Bo"}},
		"booking_type":  "daily",
		"duration":      2,
		"check_in_date": checkIn,
	}, nil)
	if st != http.StatusOK {
		t.Fatalf("check-in: %d", st)
	}

	// a room is checked out once, however many clerks press the button
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		result app.CheckOutResult
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out app.CheckOutResult
			if call(t, http.MethodPost, api+"/rooms/"+room.ID+"/checkout", nil, &out) == http.StatusOK {
				mu.Lock()
				wins++
				result = out
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("checkouts succeeded %d times", wins)
	}
	if result.Bill.ComputedCost != 1000000 || result.Bill.CalculationMethod != "pre_paid_daily" {
		t.Fatalf("bill: %+v", result.Bill)
	}
	if result.Invoice.GuestName != "Ann" || result.Invoice.Status != domain.InvoiceUnpaid {
		t.Fatalf("invoice: %+v", result.Invoice)
	}

	var bills []domain.BillRecord
	if st := call(t, http.MethodGet, api+"/bills", nil, &bills); st != http.StatusOK || len(bills) != 1 {
		t.Fatalf("bills: %d %+v", st, bills)
	}

	// a room occupied under the previous release checks out after migration
	legacyIn := time.Now().UTC().Add(-30 * time.Minute).Format("2006-01-02T15:04:05.999999")
	if err := repo.ImportRoomDocument(context.Background(), "legacy-301", "301", map[string]any{
		"number":        "301",
		"type":          "single",
		"status":        "occupied",
		"guest_name":    "Chi",
		"company_name":  "Cá nhân",
		"check_in_date": legacyIn,
		"pricing": map[string]any{
			"hourly_first": "90,000", "hourly_second": 45000, "hourly_additional": 20000,
			"daily_rate": 550000, "monthly_rate": 13000000,
		},
	}); err != nil {
		t.Fatalf("import: %v", err)
	}

	var rep app.MigrationReport
	if st := call(t, http.MethodPost, api+"/migrate/rooms", nil, &rep); st != http.StatusOK {
		t.Fatalf("migrate: %d", st)
	}
	if rep.Migrated != 1 || rep.Failed != 0 {
		t.Fatalf("report: %+v", rep)
	}

	var out app.CheckOutResult
	if st := call(t, http.MethodPost, api+"/rooms/legacy-301/checkout", nil, &out); st != http.StatusOK {
		t.Fatalf("legacy checkout: %d", st)
	}
	if out.Bill.ComputedCost != 90000 || out.Bill.Party.CompanyName != domain.IndividualParty {
		t.Fatalf("legacy bill: %+v", out.Bill)
	}
}
