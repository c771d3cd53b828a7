package floq

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var creds = Credentials{EmployeeID: 42, AccessToken: "at1"}

func TestTimeTrackedOn(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rpc/projects_for_employee_for_date", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(42), body["employee_id"])
		require.Equal(t, "2026-10-14", body["date"])

		respondJSON(w, []map[string]any{
			{"id": "ABC1000", "project": "Internal", "customer": "Blank", "minutes": 450},
			{"id": "XYZ2000", "project": "Other", "customer": "Xyz AS", "minutes": 0},
		})
	}))

	tracked, err := client.ForEmployee(creds).
		TimeTrackedOn(context.Background(), time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	require.Equal(t, "ABC1000", tracked[0].ProjectID)
	require.Equal(t, 450, tracked[0].Minutes)
	require.Equal(t, 7.5, tracked[0].Hours())
	require.Equal(t, "2026-10-14", tracked[0].Date.Format(DateLayout))
}

func TestTimeTrackedInPeriod(t *testing.T) {
	var (
		mu    sync.Mutex
		dates []string
	)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		date := body["date"].(string)

		mu.Lock()
		dates = append(dates, date)
		mu.Unlock()

		respondJSON(w, []map[string]any{
			{"id": "ABC1000", "project": "Internal", "customer": "Blank", "minutes": 60},
		})
	}))

	from := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	tracked, err := client.ForEmployee(creds).TimeTrackedInPeriod(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, tracked, 3)
	require.Equal(t, []string{"2026-10-12", "2026-10-13", "2026-10-14"}, dates)

	_, err = client.ForEmployee(creds).TimeTrackedInPeriod(context.Background(), to, from)
	require.Error(t, err)
}

func TestTrackHours(t *testing.T) {
	tests := []struct {
		name      string
		existing  []int
		hours     float64
		wantPosts []int
	}{
		{"nothing tracked", nil, 7.5, []int{450}},
		{"add the difference", []int{240}, 7.5, []int{210}},
		{"reduce", []int{300, 300}, 7.5, []int{-150}},
		{"unchanged", []int{450}, 7.5, nil},
		{"rounds to minutes", nil, 7.3333, []int{440}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu    sync.Mutex
				posts []int
			)
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/time_entry", r.URL.Path)

				switch r.Method {
				case http.MethodGet:
					q := r.URL.Query()
					require.Equal(t, "minutes", q.Get("select"))
					require.Equal(t, "eq.42", q.Get("employee"))
					require.Equal(t, "eq.ABC1000", q.Get("project"))
					require.Equal(t, "eq.2026-10-14", q.Get("date"))

					entries := make([]map[string]int, 0, len(tt.existing))
					for _, m := range tt.existing {
						entries = append(entries, map[string]int{"minutes": m})
					}
					respondJSON(w, entries)

				case http.MethodPost:
					var body timeEntryRequest
					require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
					require.Equal(t, 42, body.Creator)
					require.Equal(t, 42, body.Employee)
					require.Equal(t, "ABC1000", body.Project)
					require.Equal(t, "2026-10-14", body.Date)

					mu.Lock()
					posts = append(posts, body.Minutes)
					mu.Unlock()
					w.WriteHeader(http.StatusCreated)
				}
			}))

			date := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
			added, err := client.ForEmployee(creds).TrackHours(context.Background(), "ABC1000", date, tt.hours)
			require.NoError(t, err)
			require.Equal(t, tt.wantPosts, posts)

			if tt.wantPosts == nil {
				require.Zero(t, added)
			} else {
				require.Equal(t, tt.wantPosts[0], added)
			}
		})
	}
}

func TestAddTimeEntry_Failure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	err := client.ForEmployee(creds).AddTimeEntry(context.Background(), "ABC1000", time.Now(), 60)
	require.ErrorContains(t, err, "status 400")
}
