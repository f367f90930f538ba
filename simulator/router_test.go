package simulator

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func formRequest(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestMatchWildcard(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"available", "available", true},
		{"available", "pending", false},
		{"ubuntu/images/*-amd64-server-*", "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-amd64-server-20240531", true},
		{"ubuntu/images/*-amd64-server-*", "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-arm64-server-20240531", false},
		{"*", "", true},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"*.fifo", "tour-queue.fifo", true},
	}
	for _, tc := range cases {
		if got := MatchWildcard(tc.pattern, tc.s); got != tc.want {
			t.Errorf("MatchWildcard(%q, %q) = %v, want %v", tc.pattern, tc.s, got, tc.want)
		}
	}
}

func TestIndexedValues(t *testing.T) {
	r := formRequest(url.Values{
		"InstanceId.1": {"i-1"},
		"InstanceId.2": {"i-2"},
		"InstanceId.4": {"i-4"},
	})
	got := IndexedValues(r, "InstanceId")
	if len(got) != 2 || got[0] != "i-1" || got[1] != "i-2" {
		t.Fatalf("expected [i-1 i-2] up to the first gap, got %v", got)
	}
}

func TestParseFilters(t *testing.T) {
	r := formRequest(url.Values{
		"Filter.1.Name":    {"tag:cloudtour-run"},
		"Filter.1.Value.1": {"abcd1234"},
		"Filter.2.Name":    {"instance-state-name"},
		"Filter.2.Value.1": {"pending"},
		"Filter.2.Value.2": {"running"},
	})
	filters := ParseFilters(r)
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(filters))
	}
	if filters[0].Name != "tag:cloudtour-run" || len(filters[0].Values) != 1 {
		t.Errorf("unexpected first filter: %+v", filters[0])
	}
	if len(filters[1].Values) != 2 || filters[1].Values[1] != "running" {
		t.Errorf("unexpected second filter: %+v", filters[1])
	}
}

func TestQueryRouter_UnknownAction(t *testing.T) {
	router := NewAWSQueryRouter()
	router.Register("DescribeInstances", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, formRequest(url.Values{"Action": {"DescribeInstances"}}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, formRequest(url.Values{"Action": {"RebootInstances"}}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", w.Code)
	}
}
