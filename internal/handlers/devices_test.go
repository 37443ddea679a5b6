package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart_office/internal/models"
	"smart_office/internal/service"
)

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", authHeader("tok").Get("Authorization"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
	var m map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["status"] != "ok" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("smart_office_readings_total 3\n"))
	})
	r := newTestRouter(&service.Service{}, WithMetrics("/metrics", metrics))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("readings_total")) {
		t.Fatalf("metrics status=%d body=%s", w.Code, w.Body.String())
	}

	// not registered without the option
	r = newTestRouter(&service.Service{})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", w.Code)
	}
}

func TestDevices_RequireAuth(t *testing.T) {
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Devices: &mockDevices{}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDevices_ListAndGet(t *testing.T) {
	seen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	dev := &mockDevices{
		list: []models.DeviceState{
			{DeviceID: "SN001", Status: models.StatusOnline, LastSeenAt: seen},
			{DeviceID: "SN002", Status: models.StatusOffline},
		},
		device: models.DeviceState{DeviceID: "SN001", Status: models.StatusOnline, LastSeenAt: seen},
	}
	r := newTestRouter(authed(&service.Service{Devices: dev}))

	w := doRequest(t, r, http.MethodGet, "/api/v1/devices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
	var list struct {
		Count   int                  `json:"count"`
		Devices []models.DeviceState `json:"devices"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 2 || list.Devices[0].DeviceID != "SN001" {
		t.Fatalf("unexpected list: %+v", list)
	}

	w = doRequest(t, r, http.MethodGet, "/api/v1/devices/SN001", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	if dev.lastID != "SN001" {
		t.Fatalf("id not passed through: %q", dev.lastID)
	}

	dev.getErr = fmt.Errorf("%w: SN404", service.ErrDeviceNotFound)
	w = doRequest(t, r, http.MethodGet, "/api/v1/devices/SN404", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDevices_Latest(t *testing.T) {
	temp := 26.5
	dev := &mockDevices{latest: models.LatestReading{DeviceID: "SN001", Temperature: &temp, Online: true, Timestamp: 1740819600000}}
	r := newTestRouter(authed(&service.Service{Devices: dev}))

	w := doRequest(t, r, http.MethodGet, "/api/v1/devices/SN001/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("latest status=%d", w.Code)
	}
	var got models.LatestReading
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Temperature == nil || *got.Temperature != 26.5 || !got.Online {
		t.Fatalf("unexpected latest: %s", w.Body.String())
	}

	dev.latestErr = service.ErrNoData
	if w = doRequest(t, r, http.MethodGet, "/api/v1/devices/SN001/latest", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for no data, got %d", w.Code)
	}

	dev.latestErr = errors.New("db down")
	if w = doRequest(t, r, http.MethodGet, "/api/v1/devices/SN001/latest", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestDevices_History(t *testing.T) {
	dev := &mockDevices{history: []models.SensorRecord{{ID: 2, DeviceID: "SN001"}, {ID: 1, DeviceID: "SN001"}}}
	r := newTestRouter(authed(&service.Service{Devices: dev}))

	w := doRequest(t, r, http.MethodGet, "/api/v1/devices/SN001/history?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history status=%d", w.Code)
	}
	if dev.lastLimit != 2 {
		t.Fatalf("limit not passed through: %d", dev.lastLimit)
	}

	w = doRequest(t, r, http.MethodGet, "/api/v1/devices/SN001/history", "")
	if w.Code != http.StatusOK || dev.lastLimit != 0 {
		t.Fatalf("missing limit should defer to the service default, got %d/%d", w.Code, dev.lastLimit)
	}

	for _, bad := range []string{"0", "-1", "ten"} {
		w = doRequest(t, r, http.MethodGet, "/api/v1/devices/SN001/history?limit="+bad, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestDevices_Control(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		cmdErr   error
		wantCode int
		wantCall bool
	}{
		{"ok", `{"action":"ac_cool"}`, nil, http.StatusOK, true},
		{"missing action", `{}`, nil, http.StatusBadRequest, false},
		{"unknown action", `{"action":"warp_drive"}`, fmt.Errorf("%w: warp_drive", service.ErrUnknownAction), http.StatusBadRequest, true},
		{"not delivered", `{"action":"rgb_on"}`, fmt.Errorf("%w: broker offline", service.ErrCommandNotDelivered), http.StatusServiceUnavailable, true},
		{"unexpected", `{"action":"rgb_on"}`, errors.New("boom"), http.StatusInternalServerError, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := &mockDevices{cmdErr: tc.cmdErr}
			r := newTestRouter(authed(&service.Service{Devices: dev}))
			w := doRequest(t, r, http.MethodPost, "/api/v1/devices/SN001/control", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if (dev.cmdCalls == 1) != tc.wantCall {
				t.Fatalf("SendCommand calls=%d", dev.cmdCalls)
			}
			if tc.wantCall && dev.lastID != "SN001" {
				t.Fatalf("device id not passed through: %q", dev.lastID)
			}
		})
	}
}

func TestDevices_ControlRequiresAdmin(t *testing.T) {
	dev := &mockDevices{}
	r := newTestRouter(authedAs(&service.Service{Devices: dev}, models.RoleUser))

	w := doRequest(t, r, http.MethodPost, "/api/v1/devices/SN001/control", `{"action":"ac_cool"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for USER, got %d body=%s", w.Code, w.Body.String())
	}
	if dev.cmdCalls != 0 {
		t.Fatalf("command must not be sent for USER, calls=%d", dev.cmdCalls)
	}

	// reads stay open to USER
	if w = doRequest(t, r, http.MethodGet, "/api/v1/devices", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 on list for USER, got %d", w.Code)
	}
}
