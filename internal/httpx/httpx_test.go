package httpx

import (
	"net/url"
	"strings"
	"testing"
)

func TestDecodeJSONSingleObject(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"a"}`), &v); err != nil {
		t.Fatalf("DecodeJSON error: %v", err)
	}
	if v.Name != "a" {
		t.Fatalf("unexpected value: %q", v.Name)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"a","extra":1}`), &v); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecodeJSONRejectsTrailingContent(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"a"}{"name":"b"}`), &v); err == nil {
		t.Fatal("expected error for trailing content")
	}
}

func TestParseLimitOffsetDefaults(t *testing.T) {
	limit, offset, err := ParseLimitOffset(url.Values{}, 20, 100)
	if err != nil {
		t.Fatalf("ParseLimitOffset error: %v", err)
	}
	if limit != 20 || offset != 0 {
		t.Fatalf("unexpected defaults: limit=%d offset=%d", limit, offset)
	}
}

func TestParseLimitOffsetCapsLimit(t *testing.T) {
	values := url.Values{"limit": {"500"}, "offset": {"40"}}
	limit, offset, err := ParseLimitOffset(values, 20, 100)
	if err != nil {
		t.Fatalf("ParseLimitOffset error: %v", err)
	}
	if limit != 100 || offset != 40 {
		t.Fatalf("unexpected values: limit=%d offset=%d", limit, offset)
	}
}

func TestParseLimitOffsetRejectsBadInput(t *testing.T) {
	for _, values := range []url.Values{
		{"limit": {"0"}},
		{"limit": {"-5"}},
		{"limit": {"abc"}},
		{"offset": {"-1"}},
	} {
		if _, _, err := ParseLimitOffset(values, 20, 100); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
}
